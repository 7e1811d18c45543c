package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/logger"
)

type sendGridEmailService struct {
	client    *sendgrid.Client
	from      *mail.Email
	directory MemberDirectory
}

func NewSendGridEmailService(apiKey, fromAddress, fromName string, directory MemberDirectory) EmailService {
	return &sendGridEmailService{
		client:    sendgrid.NewSendClient(apiKey),
		from:      mail.NewEmail(fromName, fromAddress),
		directory: directory,
	}
}

func (s *sendGridEmailService) SendBorrowApproved(ctx context.Context, memberID int32, bt *domain.BorrowingTransaction) error {
	subject := "Your borrow request was approved"
	body := fmt.Sprintf(
		"Your request to borrow %d unit(s) of equipment #%d has been approved. Please return them by %s.",
		bt.QuantityBorrowed, bt.EquipmentID, bt.ExpectedReturnDate.Format("Mon, 2 Jan 2006 15:04 MST"))
	return s.send(ctx, memberID, subject, body)
}

func (s *sendGridEmailService) SendOverdueNotice(ctx context.Context, memberID int32, bt *domain.BorrowingTransaction) error {
	subject := "Borrowed equipment is overdue"
	body := fmt.Sprintf(
		"%d unit(s) of equipment #%d were due back on %s. Please return them as soon as possible; late returns accrue credit penalties.",
		bt.QuantityRemaining, bt.EquipmentID, bt.ExpectedReturnDate.Format("Mon, 2 Jan 2006 15:04 MST"))
	return s.send(ctx, memberID, subject, body)
}

func (s *sendGridEmailService) SendReturnReceipt(ctx context.Context, memberID int32, bt *domain.BorrowingTransaction, penalty int64) error {
	subject := "Equipment return received"
	body := fmt.Sprintf("Your return of equipment #%d is complete. Thank you!", bt.EquipmentID)
	if penalty > 0 {
		body = fmt.Sprintf("Your return of equipment #%d is complete. A late penalty of %d credit(s) was applied.", bt.EquipmentID, penalty)
	}
	return s.send(ctx, memberID, subject, body)
}

func (s *sendGridEmailService) send(ctx context.Context, memberID int32, subject, body string) error {
	address, name, err := s.directory(ctx, memberID)
	if err != nil {
		return fmt.Errorf("failed to resolve member %d: %w", memberID, err)
	}

	message := mail.NewSingleEmail(s.from, subject, mail.NewEmail(name, address), body, "<p>"+body+"</p>")
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	logger.Debug("Email sent", "memberID", memberID, "subject", subject)
	return nil
}

// NewHTTPMemberDirectory resolves member contact details from the external
// membership service at GET {baseURL}/members/{id}/contact.
func NewHTTPMemberDirectory(baseURL string) MemberDirectory {
	client := &http.Client{Timeout: 10 * time.Second}
	base := strings.TrimRight(baseURL, "/")
	return func(ctx context.Context, memberID int32) (string, string, error) {
		url := fmt.Sprintf("%s/members/%d/contact", base, memberID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", "", err
		}
		resp, err := client.Do(req)
		if err != nil {
			return "", "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", "", fmt.Errorf("member directory returned status %d", resp.StatusCode)
		}

		var payload struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return "", "", err
		}
		if payload.Email == "" {
			return "", "", fmt.Errorf("member %d has no email on record", memberID)
		}
		return payload.Email, payload.Name, nil
	}
}

// noopEmailService is wired when email delivery is not configured.
type noopEmailService struct{}

func NewNoopEmailService() EmailService { return noopEmailService{} }

func (noopEmailService) SendBorrowApproved(_ context.Context, memberID int32, _ *domain.BorrowingTransaction) error {
	logger.Debug("Email delivery disabled, skipping borrow approval notice", "memberID", memberID)
	return nil
}

func (noopEmailService) SendOverdueNotice(_ context.Context, memberID int32, _ *domain.BorrowingTransaction) error {
	logger.Debug("Email delivery disabled, skipping overdue notice", "memberID", memberID)
	return nil
}

func (noopEmailService) SendReturnReceipt(_ context.Context, memberID int32, _ *domain.BorrowingTransaction, _ int64) error {
	logger.Debug("Email delivery disabled, skipping return receipt", "memberID", memberID)
	return nil
}
