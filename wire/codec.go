package wire

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

// The wire format is a hand-rolled little-endian tag-then-fields binary
// encoding: a uint32 variant tag (the type's position in its declaration
// order in messages.go) followed by the variant's fields in field order. Strings
// and byte slices are a uint32 length prefix followed by raw bytes;
// uuid.UUID is its raw 16 bytes. There is no third-party dependency for
// this — see DESIGN.md for why none of the serialization libraries
// present in the example corpus produce this exact format.

type encoder struct {
	buf []byte
}

func (e *encoder) u32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *encoder) f32(v float32) {
	e.u32(math.Float32bits(v))
}

func (e *encoder) f64(v float64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	e.buf = append(e.buf, tmp[:]...)
}

func (e *encoder) uuid(id uuid.UUID) {
	e.buf = append(e.buf, id[:]...)
}

func (e *encoder) bytes(b []byte) {
	e.u32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

func (e *encoder) string(s string) {
	e.bytes([]byte(s))
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) u32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, ErrUnknownVariant
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos : d.pos+4])
	d.pos += 4
	return v, nil
}

func (d *decoder) f32() (float32, error) {
	bits, err := d.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func (d *decoder) f64() (float64, error) {
	if d.pos+8 > len(d.buf) {
		return 0, ErrUnknownVariant
	}
	bits := binary.LittleEndian.Uint64(d.buf[d.pos : d.pos+8])
	d.pos += 8
	return math.Float64frombits(bits), nil
}

func (d *decoder) uuidVal() (uuid.UUID, error) {
	if d.pos+16 > len(d.buf) {
		return uuid.UUID{}, ErrUnknownVariant
	}
	var id uuid.UUID
	copy(id[:], d.buf[d.pos:d.pos+16])
	d.pos += 16
	return id, nil
}

func (d *decoder) bytesVal() ([]byte, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	if d.pos+int(n) > len(d.buf) {
		return nil, ErrUnknownVariant
	}
	b := make([]byte, n)
	copy(b, d.buf[d.pos:d.pos+int(n)])
	d.pos += int(n)
	return b, nil
}

func (d *decoder) stringVal() (string, error) {
	b, err := d.bytesVal()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) instanceInfo() (InstanceInfo, error) {
	var info InstanceInfo
	var err error
	if info.ID, err = d.uuidVal(); err != nil {
		return info, err
	}
	if info.Creator, err = d.uuidVal(); err != nil {
		return info, err
	}
	if info.MaxPlayers, err = d.u32(); err != nil {
		return info, err
	}
	if info.CurrentPlayers, err = d.u32(); err != nil {
		return info, err
	}
	return info, nil
}

func (e *encoder) instanceInfo(info InstanceInfo) {
	e.uuid(info.ID)
	e.uuid(info.Creator)
	e.u32(info.MaxPlayers)
	e.u32(info.CurrentPlayers)
}

// EncodeClientMsg serializes msg into one binary frame payload.
func EncodeClientMsg(msg ClientMsg) []byte {
	e := &encoder{}
	switch m := msg.(type) {
	case Hello:
		e.u32(0)
		e.uuid(m.ClientID)
		e.string(m.ClientName)
	case CreateInstance:
		e.u32(1)
	case JoinInstance:
		e.u32(2)
		e.uuid(m.InstanceID)
	case LeaveInstance:
		e.u32(3)
	case ClientCustomMsg:
		e.u32(4)
		e.bytes(m.Msg)
	case ClientPing:
		e.u32(5)
		e.f64(m.Tick)
	case RefreshInstances:
		e.u32(6)
	default:
		panic("wire: unregistered ClientMsg variant")
	}
	return e.buf
}

// DecodeClientMsg parses one binary frame payload into a ClientMsg.
func DecodeClientMsg(data []byte) (ClientMsg, error) {
	d := &decoder{buf: data}
	tag, err := d.u32()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		id, err := d.uuidVal()
		if err != nil {
			return nil, err
		}
		name, err := d.stringVal()
		if err != nil {
			return nil, err
		}
		return Hello{ClientID: id, ClientName: name}, nil
	case 1:
		return CreateInstance{}, nil
	case 2:
		id, err := d.uuidVal()
		if err != nil {
			return nil, err
		}
		return JoinInstance{InstanceID: id}, nil
	case 3:
		return LeaveInstance{}, nil
	case 4:
		b, err := d.bytesVal()
		if err != nil {
			return nil, err
		}
		return ClientCustomMsg{Msg: b}, nil
	case 5:
		tick, err := d.f64()
		if err != nil {
			return nil, err
		}
		return ClientPing{Tick: tick}, nil
	case 6:
		return RefreshInstances{}, nil
	default:
		return nil, ErrUnknownVariant
	}
}

// EncodeServerMsg serializes msg into one binary frame payload.
func EncodeServerMsg(msg ServerMsg) []byte {
	e := &encoder{}
	switch m := msg.(type) {
	case JoinedLobby:
		e.u32(0)
	case InstanceCreated:
		e.u32(1)
		e.uuid(m.InstanceID)
	case Instances:
		e.u32(2)
		e.u32(uint32(len(m.Instances)))
		for _, info := range m.Instances {
			e.instanceInfo(info)
		}
	case JoinedInstance:
		e.u32(3)
		e.instanceInfo(m.Instance)
	case JoinRejected:
		e.u32(4)
		e.instanceInfo(m.Instance)
	case Pong:
		e.u32(5)
		e.f64(m.Tick)
		e.f32(m.ServerBytesSec)
		e.f32(m.ClientBytesSec)
	case ServerCustomMsg:
		e.u32(6)
		e.bytes(m.Msg)
	default:
		panic("wire: unregistered ServerMsg variant")
	}
	return e.buf
}

// DecodeServerMsg parses one binary frame payload into a ServerMsg.
func DecodeServerMsg(data []byte) (ServerMsg, error) {
	d := &decoder{buf: data}
	tag, err := d.u32()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return JoinedLobby{}, nil
	case 1:
		id, err := d.uuidVal()
		if err != nil {
			return nil, err
		}
		return InstanceCreated{InstanceID: id}, nil
	case 2:
		n, err := d.u32()
		if err != nil {
			return nil, err
		}
		infos := make([]InstanceInfo, 0, n)
		for i := uint32(0); i < n; i++ {
			info, err := d.instanceInfo()
			if err != nil {
				return nil, err
			}
			infos = append(infos, info)
		}
		return Instances{Instances: infos}, nil
	case 3:
		info, err := d.instanceInfo()
		if err != nil {
			return nil, err
		}
		return JoinedInstance{Instance: info}, nil
	case 4:
		info, err := d.instanceInfo()
		if err != nil {
			return nil, err
		}
		return JoinRejected{Instance: info}, nil
	case 5:
		tick, err := d.f64()
		if err != nil {
			return nil, err
		}
		serverBps, err := d.f32()
		if err != nil {
			return nil, err
		}
		clientBps, err := d.f32()
		if err != nil {
			return nil, err
		}
		return Pong{Tick: tick, ServerBytesSec: serverBps, ClientBytesSec: clientBps}, nil
	case 6:
		b, err := d.bytesVal()
		if err != nil {
			return nil, err
		}
		return ServerCustomMsg{Msg: b}, nil
	default:
		return nil, ErrUnknownVariant
	}
}
