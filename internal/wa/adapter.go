// Package wa bridges the WhatsApp channel into the helpdesk: it owns
// the whatsmeow client, feeds inbound messages through ticket
// resolution and ingestion, and dispatches agent and farewell messages
// back out.
package wa

import (
	"context"
	"fmt"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	_ "github.com/mattn/go-sqlite3"

	"github.com/david0ql/helpdeskd/internal/store"
)

// Adapter wraps the whatsmeow client and manages the channel session.
type Adapter struct {
	client    *whatsmeow.Client
	container *sqlstore.Container
	channel   *store.Channel
	logger    *zap.Logger
}

// NewAdapter creates the WhatsApp adapter. sessionPath is the whatsmeow
// credential database; channel is the helpdesk channel row this session
// serves.
func NewAdapter(ctx context.Context, sessionPath string, channel *store.Channel, logger *zap.Logger) (*Adapter, error) {
	// Device name shown on the phone's linked devices list.
	wastore.SetOSInfo("Helpdesk", [3]uint32{0, 1, 0})

	container, err := sqlstore.New(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on", sessionPath),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device store: %w", err)
	}

	return &Adapter{
		client:    whatsmeow.NewClient(deviceStore, nil),
		container: container,
		channel:   channel,
		logger:    logger,
	}, nil
}

// Channel returns the helpdesk channel row this adapter serves.
func (a *Adapter) Channel() *store.Channel {
	return a.channel
}

// IsLoggedIn returns whether the adapter has valid credentials.
func (a *Adapter) IsLoggedIn() bool {
	return a.client.Store.ID != nil
}

// RegisterEventHandler adds a handler for whatsmeow events.
func (a *Adapter) RegisterEventHandler(handler whatsmeow.EventHandler) {
	a.client.AddEventHandler(handler)
}

// Connect brings the channel session up. When no credentials exist yet
// the pairing QR codes are logged for the operator to scan.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.IsLoggedIn() {
		a.logger.Info("connecting channel session", zap.String("channel", a.channel.Name))
		return a.client.Connect()
	}

	qrChan, err := a.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("get QR channel: %w", err)
	}
	if err := a.client.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	go func() {
		for item := range qrChan {
			switch item.Event {
			case "code":
				a.logger.Info("scan QR code to pair the channel", zap.String("code", item.Code))
			case "success":
				a.logger.Info("channel paired", zap.String("channel", a.channel.Name))
				return
			case "timeout":
				a.logger.Warn("QR pairing timed out; restart to retry")
				return
			default:
				if item.Error != nil {
					a.logger.Error("QR pairing failed", zap.Error(item.Error))
					return
				}
			}
		}
	}()
	return nil
}

// Disconnect tears the channel session down.
func (a *Adapter) Disconnect() {
	a.logger.Info("disconnecting channel session", zap.String("channel", a.channel.Name))
	a.client.Disconnect()
}

// Logout invalidates the session and removes credentials.
func (a *Adapter) Logout(ctx context.Context) error {
	return a.client.Logout(ctx)
}

// SendText sends a text message to the given JID. Returns the server
// message id.
func (a *Adapter) SendText(ctx context.Context, jid types.JID, text string) (string, error) {
	resp, err := a.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return resp.ID, nil
}

// SendMessage dispatches body to the ticket's contact. This is the
// outbound path used by agent replies and farewell messages.
func (a *Adapter) SendMessage(ctx context.Context, body string, detail *store.TicketDetail) error {
	if detail.Contact == nil {
		return fmt.Errorf("ticket %d has no contact", detail.ID)
	}
	jid := contactJID(detail.Contact.Number, detail.IsGroup)
	if _, err := a.SendText(ctx, jid, body); err != nil {
		return err
	}
	a.logger.Debug("message dispatched",
		zap.Int64("ticket", detail.ID),
		zap.String("to", jid.String()))
	return nil
}

func contactJID(number string, isGroup bool) types.JID {
	server := types.DefaultUserServer
	if isGroup {
		server = types.GroupServer
	}
	return types.NewJID(number, server)
}
