package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"helpdesk/internal/models"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	KindTicketCreated = "ticket_created"
	KindTicketStatus  = "ticket_status"
)

// Publisher — то, что умеет *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Event struct {
	Event     string    `json:"event"`
	CompanyID uint      `json:"company_id"`
	TicketID  uint      `json:"ticket_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority"`
	At        time.Time `json:"at"`
}

// Notifier пишет запись уведомления и публикует событие.
// Это отдельные от тикета операции: их ошибки логируются и тикет не откатывают.
type Notifier struct {
	db  *gorm.DB
	pub Publisher
}

func New(db *gorm.DB, pub Publisher) *Notifier {
	return &Notifier{db: db, pub: pub}
}

// Connect подключается к NATS; пустой url — публикация выключена.
func Connect(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("helpdesk"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

func (n *Notifier) TicketCreated(ctx context.Context, t *models.SupportTicket) {
	msg := fmt.Sprintf("Новый тикет #%d (%s): %s", t.ID, t.Priority, t.Title)
	n.record(ctx, t, KindTicketCreated, msg)
	n.publish(t, "created")
}

func (n *Notifier) TicketStatusChanged(ctx context.Context, t *models.SupportTicket, from models.TicketStatus) {
	msg := fmt.Sprintf("Тикет #%d: %s → %s", t.ID, from, t.Status)
	n.record(ctx, t, KindTicketStatus, msg)
	n.publish(t, "status")
}

func (n *Notifier) record(ctx context.Context, t *models.SupportTicket, kind, msg string) {
	rec := models.Notification{
		CompanyID: t.CompanyID,
		TicketID:  t.ID,
		Kind:      kind,
		Message:   msg,
	}
	if err := n.db.WithContext(ctx).Create(&rec).Error; err != nil {
		log.Error().Err(err).Uint("ticket_id", t.ID).Str("kind", kind).Msg("notification write failed")
	}
}

func (n *Notifier) publish(t *models.SupportTicket, event string) {
	if n.pub == nil {
		return
	}
	data, err := json.Marshal(Event{
		Event:     "ticket." + event,
		CompanyID: t.CompanyID,
		TicketID:  t.ID,
		Title:     t.Title,
		Status:    string(t.Status),
		Priority:  string(t.Priority),
		At:        time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Msg("marshal ticket event")
		return
	}
	subject := fmt.Sprintf("helpdesk.tickets.%d.%s", t.CompanyID, event)
	if err := n.pub.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("ticket event publish failed")
	}
}
