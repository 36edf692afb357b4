package core

import (
	"errors"
	"sort"
	"strconv"
	"sync"
)

// ErrUnknownCommand is returned by Dispatch for an unregistered ID.
var ErrUnknownCommand = errors.New("unknown command")

// CommandHandler decodes its own arguments from data.
type CommandHandler func(data *[]byte) error

// Command is one entry of the message dictionary. Responses (firmware to
// host) have no handler.
type Command struct {
	ID      uint16
	Name    string
	Format  string // e.g. "clock=%c source=%c"
	Handler CommandHandler
}

// CommandRegistry maps message IDs to handlers.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{commands: make(map[uint16]*Command)}
}

// Register adds a command under a fixed ID. Registering an ID twice
// replaces the earlier entry.
func (r *CommandRegistry) Register(id uint16, name, format string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[id] = &Command{ID: id, Name: name, Format: format, Handler: handler}
}

// RegisterResponse adds a firmware-to-host message.
func (r *CommandRegistry) RegisterResponse(id uint16, name, format string) {
	r.Register(id, name, format, nil)
}

func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch runs the handler registered for cmdID.
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok || cmd.Handler == nil {
		return ErrUnknownCommand
	}
	return cmd.Handler(data)
}

// Dictionary lists every registered message, one "id name format" line
// each, in ID order.
func (r *CommandRegistry) Dictionary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int, 0, len(r.commands))
	for id := range r.commands {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	dict := ""
	for _, id := range ids {
		cmd := r.commands[uint16(id)]
		dict += strconv.Itoa(id) + " " + cmd.Name
		if cmd.Format != "" {
			dict += " " + cmd.Format
		}
		dict += "\n"
	}
	return dict
}
