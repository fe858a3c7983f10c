package manager

import (
	"context"
	"time"

	"github.com/pbxkit/pbxkit-go/pkg/wire"
)

// Action is a typed admin request. Every action reduces to a name plus
// a flat ordered field set; fields are built explicitly per action and
// serialized by the generic mapper in pkg/wire, so there is no runtime
// introspection anywhere on this path.
type Action interface {
	// ActionName returns the protocol action name.
	ActionName() string

	// ActionFields returns the serialized request fields, in order.
	ActionFields() wire.Fields
}

// Do issues a typed action and waits for its correlated reply.
func (c *Client) Do(ctx context.Context, a Action) (*wire.Unit, error) {
	return c.Send(ctx, a.ActionName(), a.ActionFields())
}

// Ping checks connection liveness.
type Ping struct {
	ActionID string
}

func (a Ping) ActionName() string { return "Ping" }

func (a Ping) ActionFields() wire.Fields {
	return wire.Fields{}.AddOpt(wire.KeyActionID, a.ActionID)
}

// Originate places a new call on a channel and connects it to a
// dialplan extension or directly to an application.
type Originate struct {
	Channel string

	// Dialplan destination (used when Application is empty).
	Exten    string
	Context  string
	Priority int

	// Direct application execution.
	Application string
	Data        string

	Timeout  time.Duration
	CallerID string
	Account  string

	// Variables are channel variables as "name=value" pairs, one
	// header line each, order preserved.
	Variables []string

	// Async makes the server answer immediately and report progress
	// through OriginateResponse events.
	Async bool

	ActionID string
}

func (a Originate) ActionName() string { return "Originate" }

func (a Originate) ActionFields() wire.Fields {
	f := wire.Fields{}.Add("Channel", a.Channel)
	f = f.AddOpt("Exten", a.Exten)
	f = f.AddOpt("Context", a.Context)
	if a.Priority > 0 {
		f = f.AddInt("Priority", a.Priority)
	}
	f = f.AddOpt("Application", a.Application)
	f = f.AddOpt("Data", a.Data)
	if a.Timeout > 0 {
		f = f.AddInt("Timeout", int(a.Timeout.Milliseconds()))
	}
	f = f.AddOpt("CallerID", a.CallerID)
	f = f.AddOpt("Account", a.Account)
	f = f.AddList("Variable", a.Variables...)
	if a.Async {
		f = f.AddBool("Async", true)
	}
	return f.AddOpt(wire.KeyActionID, a.ActionID)
}

// Hangup terminates a channel.
type Hangup struct {
	Channel string

	// Cause is the telephony cause code; zero means server default.
	Cause int

	ActionID string
}

func (a Hangup) ActionName() string { return "Hangup" }

func (a Hangup) ActionFields() wire.Fields {
	f := wire.Fields{}.Add("Channel", a.Channel)
	if a.Cause > 0 {
		f = f.AddInt("Cause", a.Cause)
	}
	return f.AddOpt(wire.KeyActionID, a.ActionID)
}

// Getvar reads a channel (or global) variable.
type Getvar struct {
	Variable string
	Channel  string
	ActionID string
}

func (a Getvar) ActionName() string { return "Getvar" }

func (a Getvar) ActionFields() wire.Fields {
	f := wire.Fields{}.Add("Variable", a.Variable)
	f = f.AddOpt("Channel", a.Channel)
	return f.AddOpt(wire.KeyActionID, a.ActionID)
}

// Setvar writes a channel (or global) variable.
type Setvar struct {
	Variable string
	Value    string
	Channel  string
	ActionID string
}

func (a Setvar) ActionName() string { return "Setvar" }

func (a Setvar) ActionFields() wire.Fields {
	f := wire.Fields{}.Add("Variable", a.Variable)
	f = f.Add("Value", a.Value)
	f = f.AddOpt("Channel", a.Channel)
	return f.AddOpt(wire.KeyActionID, a.ActionID)
}

// Status lists active channels; a list reply.
type Status struct {
	Channel      string
	Variables    []string
	AllVariables bool
	ActionID     string
}

func (a Status) ActionName() string { return "Status" }

func (a Status) ActionFields() wire.Fields {
	f := wire.Fields{}.AddOpt("Channel", a.Channel)
	f = f.AddList("Variables", a.Variables...)
	if a.AllVariables {
		f = f.AddBool("AllVariables", true)
	}
	return f.AddOpt(wire.KeyActionID, a.ActionID)
}

// QueueStatus reports queue and member state; a list reply.
type QueueStatus struct {
	Queue    string
	Member   string
	ActionID string
}

func (a QueueStatus) ActionName() string { return "QueueStatus" }

func (a QueueStatus) ActionFields() wire.Fields {
	f := wire.Fields{}.AddOpt("Queue", a.Queue)
	f = f.AddOpt("Member", a.Member)
	return f.AddOpt(wire.KeyActionID, a.ActionID)
}

// Command executes a console command; its output arrives in the
// reply's Output header (see wire.Unit.Data).
type Command struct {
	Command  string
	ActionID string
}

func (a Command) ActionName() string { return "Command" }

func (a Command) ActionFields() wire.Fields {
	f := wire.Fields{}.Add("Command", a.Command)
	return f.AddOpt(wire.KeyActionID, a.ActionID)
}

// Events changes the event mask for this connection.
type Events struct {
	// EventMask is "on", "off", or a comma-separated class list such
	// as "call,agent".
	EventMask string
	ActionID  string
}

func (a Events) ActionName() string { return "Events" }

func (a Events) ActionFields() wire.Fields {
	f := wire.Fields{}.Add("EventMask", a.EventMask)
	return f.AddOpt(wire.KeyActionID, a.ActionID)
}

// Redirect transfers a channel (and optionally its peer) to a dialplan
// destination.
type Redirect struct {
	Channel      string
	ExtraChannel string
	Exten        string
	Context      string
	Priority     int
	ActionID     string
}

func (a Redirect) ActionName() string { return "Redirect" }

func (a Redirect) ActionFields() wire.Fields {
	f := wire.Fields{}.Add("Channel", a.Channel)
	f = f.AddOpt("ExtraChannel", a.ExtraChannel)
	f = f.Add("Exten", a.Exten)
	f = f.Add("Context", a.Context)
	if a.Priority > 0 {
		f = f.AddInt("Priority", a.Priority)
	}
	return f.AddOpt(wire.KeyActionID, a.ActionID)
}

// ExtensionState queries the state of a dialplan extension.
type ExtensionState struct {
	Exten    string
	Context  string
	ActionID string
}

func (a ExtensionState) ActionName() string { return "ExtensionState" }

func (a ExtensionState) ActionFields() wire.Fields {
	f := wire.Fields{}.Add("Exten", a.Exten)
	f = f.Add("Context", a.Context)
	return f.AddOpt(wire.KeyActionID, a.ActionID)
}

// CoreShowChannels lists all active channels; a list reply.
type CoreShowChannels struct {
	ActionID string
}

func (a CoreShowChannels) ActionName() string { return "CoreShowChannels" }

func (a CoreShowChannels) ActionFields() wire.Fields {
	return wire.Fields{}.AddOpt(wire.KeyActionID, a.ActionID)
}

// GetVar is a convenience wrapper around Getvar returning the value.
func (c *Client) GetVar(ctx context.Context, variable, channel string) (string, error) {
	reply, err := c.Do(ctx, Getvar{Variable: variable, Channel: channel})
	if err != nil {
		return "", err
	}
	return reply.Get("Value"), nil
}

// SetVar is a convenience wrapper around Setvar.
func (c *Client) SetVar(ctx context.Context, variable, value, channel string) error {
	_, err := c.Do(ctx, Setvar{Variable: variable, Value: value, Channel: channel})
	return err
}
