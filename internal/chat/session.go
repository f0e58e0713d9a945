// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-assistant/pkg/types"
)

// Session owns the conversation state of one interactive user.
type Session struct {
	ID      string
	State   *types.ConversationState
	Machine *Machine

	// Window is the number of history entries kept between turns.
	Window int
}

// NewSession starts an empty conversation.
func NewSession(m *Machine, window int) *Session {
	return &Session{
		ID:      uuid.NewString(),
		State:   &types.ConversationState{History: []types.Message{}},
		Machine: m,
		Window:  window,
	}
}

// Turn records text as a user turn, runs the state machine once, and
// returns the assistant reply. When the turn ends with an error indicator
// the error text is returned as err and no reply is recorded.
func (s *Session) Turn(ctx context.Context, text string) (string, error) {
	st := s.State
	st.History = append(st.History, types.Message{Role: types.RoleUser, Content: text})
	before := len(st.History)

	trace := s.Machine.Run(ctx, st)
	s.Machine.logger().Debug("chat turn",
		zap.String("session", s.ID),
		zap.Any("trace", trace),
	)

	var reply string
	var err error
	switch {
	case st.Error != "":
		err = errors.New(st.Error)
	case len(st.History) > before:
		reply = st.LastBotResponse
	}

	if s.Window > 0 {
		st.TruncateHistory(s.Window)
	}
	return reply, err
}

// Loop reads one turn per line from in and writes each reply to out until
// the exit token or EOF. Blank lines are ignored.
func (s *Session) Loop(ctx context.Context, in io.Reader, out io.Writer, exitToken string) error {
	if exitToken == "" {
		exitToken = "exit"
	}

	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "You: ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, exitToken) {
			return nil
		}
		if line != "" {
			reply, err := s.Turn(ctx, line)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			} else {
				fmt.Fprintf(out, "Assistant: %s\n", reply)
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(out, "You: ")
	}
	fmt.Fprintln(out)
	return scanner.Err()
}
