package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSGateway publishes alerts as JSON on "<subject>.<admin id>".
type NATSGateway struct {
	conn    *nats.Conn
	subject string
}

func NewNATSGateway(conn *nats.Conn, subject string) *NATSGateway {
	if subject == "" {
		subject = "cleanshift.alerts"
	}
	return &NATSGateway{conn: conn, subject: subject}
}

// Subject returns the subject alerts for adminID are published on.
func (g *NATSGateway) Subject(adminID uint) string {
	return fmt.Sprintf("%s.%d", g.subject, adminID)
}

func (g *NATSGateway) AlertAdmin(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	msg := nats.NewMsg(g.Subject(alert.AdminID))
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, alert.ID)
	msg.Header.Set("Admin-Address", alert.AdminAddress)

	if err := g.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	// Flush so a dead connection surfaces as a failed delivery.
	if err := g.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush alert: %w", err)
	}
	return nil
}
