package lib

import (
	"context"
	"os"

	"github.com/pusher/pusher-http-go/v5"
)

var pusherClient *pusher.Client

func GetPusherClient() *pusher.Client {
	if pusherClient != nil {
		return pusherClient
	}
	pusherClient = &pusher.Client{
		AppID:   os.Getenv("PUSHER_APP_ID"),
		Key:     os.Getenv("PUSHER_KEY"),
		Secret:  os.Getenv("PUSHER_SECRET"),
		Cluster: os.Getenv("PUSHER_CLUSTER"),
		Secure:  true,
	}
	return pusherClient
}

// PusherChannels pushes to the private channel of a recipient.
type PusherChannels struct {
	client *pusher.Client
}

func NewPusherChannels(c *pusher.Client) *PusherChannels {
	return &PusherChannels{client: c}
}

func (p *PusherChannels) Push(ctx context.Context, recipient string, event string, payload any) error {
	return p.client.Trigger(UserChannel(recipient), event, payload)
}

// UserChannel is the per-user channel or room name. Pusher channel names
// only allow [-_=@,.;A-Za-z0-9].
func UserChannel(email string) string {
	return "user_" + email
}
