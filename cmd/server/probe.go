package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/droprelay/internal/proto"
)

type probeFlags struct {
	addr    string
	room    string
	data    string
	timeout time.Duration
}

// newProbeCmd builds a small client that joins a room and prints what it receives.
func newProbeCmd() *cobra.Command {
	var flags probeFlags

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Join a room and print relay events",
		Long: `probe connects to a running relay, joins a room (or lets the server pick a
code) and prints every frame it receives. With --data it sends one file frame
as soon as the room is ready.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", "ws://localhost:8080/ws", "WebSocket address")
	cmd.Flags().StringVar(&flags.room, "room", "", "room code to join (empty asks the server for one)")
	cmd.Flags().StringVar(&flags.data, "data", "", "JSON value to send as a file payload once ready")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 30*time.Second, "total timeout for the run")
	return cmd
}

func runProbe(cmd *cobra.Command, flags probeFlags) error {
	var data json.RawMessage
	if flags.data != "" {
		if !json.Valid([]byte(flags.data)) {
			return errors.New("--data is not valid JSON")
		}
		data = json.RawMessage(flags.data)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, flags.addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	joinPayload, err := json.Marshal(proto.JoinRoomData{RoomID: flags.room})
	if err != nil {
		return fmt.Errorf("marshal join: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeJoinRoom, Payload: joinPayload}); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	out := cmd.OutOrStdout()
	sent := false
	for {
		var frame struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		switch frame.Type {
		case proto.OutboundTypeRoomJoined:
			var joined proto.RoomJoinedData
			if err := json.Unmarshal(frame.Payload, &joined); err == nil {
				fmt.Fprintf(out, "joined room %s\n", joined.RoomID)
			}
		case proto.OutboundTypeReady:
			fmt.Fprintln(out, "room ready")
			if data != nil && !sent {
				if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeFile, Payload: data}); err != nil {
					return fmt.Errorf("send file: %w", err)
				}
				sent = true
				fmt.Fprintln(out, "file frame sent")
			}
		case proto.OutboundTypeNotReady:
			fmt.Fprintln(out, "waiting for peer")
		case proto.OutboundTypeFile:
			var file proto.FileData
			if err := json.Unmarshal(frame.Payload, &file); err != nil {
				return fmt.Errorf("decode file: %w", err)
			}
			fmt.Fprintf(out, "file from %s: %s\n", file.SenderID, file.Data)
		case proto.OutboundTypeError:
			var perr proto.Error
			if err := json.Unmarshal(frame.Payload, &perr); err == nil {
				fmt.Fprintf(out, "error %s: %s\n", perr.Code, perr.Message)
			}
		default:
			fmt.Fprintf(out, "unexpected frame %s: %s\n", frame.Type, frame.Payload)
		}
	}
}
