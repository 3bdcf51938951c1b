package notifier

import (
	"fmt"
	"net/smtp"
	"strings"

	"vigia-precos/internal/models"
)

// Email entrega alertas por SMTP. O endpoint do watch é o endereço de
// destino.
type Email struct {
	host string
	port int
	user string
	pass string
	from string
}

// NewEmail cria o canal de e-mail com as credenciais SMTP.
func NewEmail(host string, port int, user, pass, from string) *Email {
	return &Email{host: host, port: port, user: user, pass: pass, from: from}
}

func (e *Email) Send(watch models.Watch, product models.Product, newPrice float64, reason string) error {
	title, body := formatAlert(product, newPrice, reason)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.from)
	fmt.Fprintf(&msg, "To: %s\r\n", watch.Endpoint)
	fmt.Fprintf(&msg, "Subject: %s\r\n", title)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.user, e.pass, e.host)
	if err := smtp.SendMail(addr, auth, e.from, []string{watch.Endpoint}, []byte(msg.String())); err != nil {
		return fmt.Errorf("erro ao enviar e-mail: %w", err)
	}
	return nil
}
