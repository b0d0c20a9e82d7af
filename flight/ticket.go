package flight

import (
	"fmt"

	"github.com/goccy/go-json"
)

// TicketData is the decoded content of a Flight ticket. Tickets carry the
// encoded plan so DoGet is stateless: any server instance can serve any
// ticket it handed out.
type TicketData struct {
	// Plan is the encoded plan, base64 in the JSON form.
	Plan []byte `json:"plan"`
}

// EncodeTicket wraps encoded plan bytes into an opaque ticket.
func EncodeTicket(planBytes []byte) ([]byte, error) {
	if len(planBytes) == 0 {
		return nil, fmt.Errorf("plan cannot be empty")
	}
	data, err := json.Marshal(TicketData{Plan: planBytes})
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return data, nil
}

// DecodeTicket parses an opaque ticket produced by EncodeTicket.
func DecodeTicket(ticketBytes []byte) (*TicketData, error) {
	if len(ticketBytes) == 0 {
		return nil, fmt.Errorf("ticket cannot be empty")
	}
	var ticket TicketData
	if err := json.Unmarshal(ticketBytes, &ticket); err != nil {
		return nil, fmt.Errorf("failed to decode ticket: %w", err)
	}
	if len(ticket.Plan) == 0 {
		return nil, fmt.Errorf("ticket has no plan")
	}
	return &ticket, nil
}
