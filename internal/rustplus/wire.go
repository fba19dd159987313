package rustplus

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Номера полей из rustplus.proto (Facepunch Companion). Нам нужна только
// часть схемы: запросы в тим-чат и ответы/рассылки, поэтому сообщения
// собираются вручную через protowire.
const (
	reqSeq             protowire.Number = 1
	reqPlayerID        protowire.Number = 2
	reqPlayerToken     protowire.Number = 3
	reqGetTeamInfo     protowire.Number = 11
	reqSendTeamMessage protowire.Number = 13

	sendMessageText protowire.Number = 1

	msgResponse  protowire.Number = 1
	msgBroadcast protowire.Number = 2

	respSeq   protowire.Number = 1
	respError protowire.Number = 5
	errorText protowire.Number = 1

	bcastTeamMessage protowire.Number = 5
	newTeamMessage   protowire.Number = 1

	tmSteamID protowire.Number = 1
	tmName    protowire.Number = 2
	tmMessage protowire.Number = 3
	tmColor   protowire.Number = 4
	tmTime    protowire.Number = 5
)

// Request — AppRequest с одним из поддерживаемых действий.
type Request struct {
	Seq         uint32
	PlayerID    uint64
	PlayerToken int32

	TeamMessage *string // sendTeamMessage
	TeamInfo    bool    // getTeamInfo (используется как heartbeat)
}

// Response — AppResponse; Error пуст при успехе.
type Response struct {
	Seq   uint32
	Error string
}

// TeamMessage — сообщение тим-чата из AppBroadcast.
type TeamMessage struct {
	SteamID uint64
	Name    string
	Message string
	Color   string
	Time    uint32
}

// Message — AppMessage: либо ответ на запрос, либо рассылка сервера.
// Рассылки, кроме тим-чата, не разбираются.
type Message struct {
	Response    *Response
	TeamMessage *TeamMessage
}

var errMalformed = errors.New("rustplus: malformed message")

// Marshal кодирует запрос.
func (r Request) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, reqSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Seq))
	b = protowire.AppendTag(b, reqPlayerID, protowire.VarintType)
	b = protowire.AppendVarint(b, r.PlayerID)
	b = protowire.AppendTag(b, reqPlayerToken, protowire.VarintType)
	// int32 кодируется как varint знакорасширенного int64
	b = protowire.AppendVarint(b, uint64(int64(r.PlayerToken)))

	if r.TeamInfo {
		b = protowire.AppendTag(b, reqGetTeamInfo, protowire.BytesType)
		b = protowire.AppendBytes(b, nil)
	}
	if r.TeamMessage != nil {
		var sm []byte
		sm = protowire.AppendTag(sm, sendMessageText, protowire.BytesType)
		sm = protowire.AppendString(sm, *r.TeamMessage)
		b = protowire.AppendTag(b, reqSendTeamMessage, protowire.BytesType)
		b = protowire.AppendBytes(b, sm)
	}
	return b
}

// UnmarshalMessage разбирает AppMessage.
func UnmarshalMessage(b []byte) (Message, error) {
	var m Message
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		switch {
		case num == msgResponse && typ == protowire.BytesType:
			r, err := unmarshalResponse(v)
			if err != nil {
				return err
			}
			m.Response = &r
		case num == msgBroadcast && typ == protowire.BytesType:
			tm, err := unmarshalBroadcast(v)
			if err != nil {
				return err
			}
			m.TeamMessage = tm
		}
		return nil
	})
	return m, err
}

func unmarshalResponse(b []byte) (Response, error) {
	var r Response
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch {
		case num == respSeq && typ == protowire.VarintType:
			r.Seq = uint32(n)
		case num == respError && typ == protowire.BytesType:
			r.Error = "unknown error"
			return walk(v, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
				if num == errorText && typ == protowire.BytesType {
					r.Error = string(v)
				}
				return nil
			})
		}
		return nil
	})
	return r, err
}

func unmarshalBroadcast(b []byte) (*TeamMessage, error) {
	var tm *TeamMessage
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num != bcastTeamMessage || typ != protowire.BytesType {
			return nil
		}
		return walk(v, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
			if num != newTeamMessage || typ != protowire.BytesType {
				return nil
			}
			m, err := unmarshalTeamMessage(v)
			if err != nil {
				return err
			}
			tm = &m
			return nil
		})
	})
	return tm, err
}

func unmarshalTeamMessage(b []byte) (TeamMessage, error) {
	var m TeamMessage
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case tmSteamID:
			m.SteamID = n
		case tmName:
			m.Name = string(v)
		case tmMessage:
			m.Message = string(v)
		case tmColor:
			m.Color = string(v)
		case tmTime:
			m.Time = uint32(n)
		}
		return nil
	})
	return m, err
}

// walk обходит поля сообщения. Для varint-полей передаётся n, для
// length-delimited — v; остальные типы пропускаются.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error) error {
	for len(b) > 0 {
		num, typ, tl := protowire.ConsumeTag(b)
		if tl < 0 {
			return fmt.Errorf("%w: %v", errMalformed, protowire.ParseError(tl))
		}
		b = b[tl:]

		var (
			v  []byte
			n  uint64
			vl int
		)
		switch typ {
		case protowire.VarintType:
			n, vl = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			v, vl = protowire.ConsumeBytes(b)
		default:
			vl = protowire.ConsumeFieldValue(num, typ, b)
		}
		if vl < 0 {
			return fmt.Errorf("%w: field %d: %v", errMalformed, num, protowire.ParseError(vl))
		}
		b = b[vl:]

		if typ == protowire.VarintType || typ == protowire.BytesType {
			if err := fn(num, typ, v, n); err != nil {
				return err
			}
		}
	}
	return nil
}
