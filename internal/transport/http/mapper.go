package http

import (
	"bytes"
	"encoding/json"

	"github.com/vovakirdan/droprelay/internal/core"
	"github.com/vovakirdan/droprelay/internal/proto"
)

func invalidFormat() *proto.Error {
	return &proto.Error{Code: proto.ErrCodeInvalidMessage, Message: proto.MsgInvalidFormat}
}

// decodeInbound parses a raw frame into the envelope.
func decodeInbound(data []byte) (proto.Inbound, *proto.Error) {
	var inbound proto.Inbound
	if err := json.Unmarshal(data, &inbound); err != nil {
		return proto.Inbound{}, invalidFormat()
	}
	return inbound, nil
}

// inboundToCommand validates the payload shape for the message type and maps
// it to a core command.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoinRoom:
		if !isObject(inbound.Payload) {
			return nil, invalidFormat()
		}
		var join proto.JoinRoomData
		if err := json.Unmarshal(inbound.Payload, &join); err != nil {
			return nil, invalidFormat()
		}
		return &core.Command{
			Kind: core.CommandJoinRoom,
			Room: join.RoomID,
		}, nil
	case proto.InboundTypeFile:
		return &core.Command{
			Kind:    core.CommandRelay,
			Payload: inbound.Payload,
		}, nil
	default:
		return nil, &proto.Error{Code: proto.ErrCodeUnknownType, Message: "unknown message type"}
	}
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomJoined:
		return proto.Outbound{
			Type:    proto.OutboundTypeRoomJoined,
			Payload: proto.RoomJoinedData{RoomID: event.Room},
		}
	case core.EventReady:
		return proto.Outbound{Type: proto.OutboundTypeReady}
	case core.EventNotReady:
		return proto.Outbound{Type: proto.OutboundTypeNotReady}
	case core.EventFile:
		return proto.Outbound{
			Type: proto.OutboundTypeFile,
			Payload: proto.FileData{
				SenderID: event.SenderID,
				Data:     event.Payload,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.NewError("unknown", "unknown error")
		}
		return proto.NewError(event.Error.Code, event.Error.Message)
	default:
		return proto.NewError("unknown", "unknown event")
	}
}
