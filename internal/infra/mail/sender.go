package mail

import (
	"bytes"
	"fmt"
	"text/template"

	"gopkg.in/gomail.v2"
)

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	AlertTo  string
}

func NewEmailSender(host string, port int, user, password, alertTo string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		AlertTo:  alertTo,
	}
}

var deadLetterTmpl = template.Must(template.New("deadletter").Parse(
	`O lead {{.LeadID}} ({{.Email}}) esgotou as tentativas de notificação.

Último erro: {{.LastError}}

Use o redrive para reprocessar: POST /leads/{{.LeadID}}/redrive
`))

type deadLetterData struct {
	LeadID    string
	Email     string
	LastError string
}

// SendDeadLetterAlert avisa a operação que um lead virou dead-letter.
func (s *EmailSender) SendDeadLetterAlert(leadID, email, lastError string) error {
	if s.AlertTo == "" {
		return nil
	}

	var body bytes.Buffer
	if err := deadLetterTmpl.Execute(&body, deadLetterData{
		LeadID:    leadID,
		Email:     email,
		LastError: lastError,
	}); err != nil {
		return fmt.Errorf("erro ao processar template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", "nao-responda@liguemedicina.com")
	m.SetHeader("To", s.AlertTo)
	m.SetHeader("Subject", fmt.Sprintf("⚠️ Lead %s em dead-letter", leadID))
	m.SetBody("text/plain", body.String())

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}

	return nil
}
