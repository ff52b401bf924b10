package tickets

import (
	"context"
	"errors"
	"fmt"

	"venuepass/pkg/logger"

	"github.com/google/uuid"
)

// Outcome is the verdict shown at the entrance. Values match the scan results
// recorded by scanning devices.
type Outcome string

const (
	OutcomeAdmitted    Outcome = "SUCCESS"
	OutcomeAlreadyUsed Outcome = "DUPLICATE"
	OutcomeRejected    Outcome = "INVALID"
)

// Admission is the result of presenting a credential at a venue
type Admission struct {
	Outcome Outcome      `json:"result"`
	Reason  string       `json:"reason,omitempty"`
	Ticket  *EventTicket `json:"ticket,omitempty"`
}

type AdmitRequest struct {
	Code    string `json:"code" validate:"required,max=128"`
	VenueID string `json:"venue_id" validate:"required,uuid"`
}

type Service interface {
	// Admit marks a valid ticket as used. Anything other than a first, valid
	// presentation at the right venue is reported through the outcome, not
	// as an error.
	Admit(ctx context.Context, code string, venueID uuid.UUID) (*Admission, error)
}

type service struct {
	repo Repository
	log  *logger.Logger
}

func NewService(repo Repository) Service {
	return &service{repo: repo, log: logger.GetDefault()}
}

func (s *service) Admit(ctx context.Context, code string, venueID uuid.UUID) (*Admission, error) {
	ticket, err := s.repo.GetByCredential(ctx, code)
	if errors.Is(err, ErrTicketNotFound) {
		return &Admission{Outcome: OutcomeRejected, Reason: "unknown credential"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}

	if ticket.VenueID != venueID {
		return &Admission{Outcome: OutcomeRejected, Reason: "ticket is for another venue"}, nil
	}

	switch ticket.Status {
	case StatusUsed:
		return &Admission{Outcome: OutcomeAlreadyUsed, Ticket: ticket}, nil
	case StatusValid:
	default:
		return &Admission{Outcome: OutcomeRejected, Reason: "ticket is " + ticket.Status.String(), Ticket: ticket}, nil
	}

	if err := s.repo.UpdateStatus(ctx, ticket.ID, StatusValid, StatusUsed); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			// another entrance admitted it first
			return &Admission{Outcome: OutcomeAlreadyUsed, Ticket: ticket}, nil
		}
		return nil, fmt.Errorf("failed to mark ticket used: %w", err)
	}

	ticket.Status = StatusUsed
	s.log.Info("Ticket admitted", "ticket_id", ticket.ID.String(), "venue_id", venueID.String())
	return &Admission{Outcome: OutcomeAdmitted, Ticket: ticket}, nil
}
