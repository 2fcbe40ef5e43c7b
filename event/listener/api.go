package listener

import (
	"encoding/json"
	"log"
	"time"

	"direct-messenger/event"
)

const ActionPresenceSnapshot = "presence.snapshot"

type Sender interface {
	Emit(service, action string, data []byte, journal bool) error
}

type Presence interface {
	Online() []uint
}

type PresenceSnapshot struct {
	Online []uint `json:"online"`
	At     int64  `json:"at"`
}

// Api answers requests arriving on the "api" queue.
type Api struct {
	Channel  chan event.Data
	sender   Sender
	presence Presence
	now      func() time.Time
}

func NewApi(sender Sender, presence Presence) *Api {
	return &Api{
		Channel:  make(chan event.Data),
		sender:   sender,
		presence: presence,
		now:      time.Now,
	}
}

// Run handles events until the channel is closed.
func (a *Api) Run() {
	for data := range a.Channel {
		a.Handle(data)
	}
}

func (a *Api) Handle(data event.Data) {
	switch data.Action {
	case ActionPresenceSnapshot:
		online := a.presence.Online()
		if online == nil {
			online = []uint{}
		}
		a.reply(data.Out, ActionPresenceSnapshot, PresenceSnapshot{
			Online: online,
			At:     a.now().Unix(),
		})
	default:
		log.Printf("api listener: unknown action %q", data.Action)
	}
}

func (a *Api) reply(out event.OutData, action string, payload any) {
	if !out.Send {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("api listener: encode %s: %v", action, err)
		return
	}
	if err := a.sender.Emit(event.QueueBackoffice, action, body, out.Log); err != nil {
		log.Printf("api listener: %v", err)
	}
}
