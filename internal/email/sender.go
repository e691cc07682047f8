package email

import (
	"context"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Address struct {
	Name  string
	Email string
}

func (a Address) String() string {
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

type Message struct {
	From    Address
	To      Address
	Subject string
	HTML    string
}

// EncodedSubject is the Subject header value: line breaks folded to spaces,
// non-ASCII text as an RFC 2047 encoded-word.
func (m Message) EncodedSubject() string {
	subject := strings.Join(strings.FieldsFunc(m.Subject, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
	return mime.QEncoding.Encode("utf-8", subject)
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	host     string
	port     string
	user     string
	password string
}

func NewSMTPSender(host, port, user, password string) *SMTPSender {
	return &SMTPSender{host: host, port: port, user: user, password: password}
}

func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	auth := smtp.PlainAuth("", s.user, s.password, s.host)

	body := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		msg.From, msg.To, msg.EncodedSubject(), msg.HTML,
	))

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	if err := smtp.SendMail(addr, auth, msg.From.Email, []string{msg.To.Email}, body); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To.Email, err)
	}
	return nil
}

// FolderSender appends every message to a file named after the recipient.
// Used in development and tests instead of a real provider.
type FolderSender struct {
	dir string
	mu  sync.Mutex
}

func NewFolderSender(dir string) (*FolderSender, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create email folder: %w", err)
	}
	return &FolderSender{dir: dir}, nil
}

func (s *FolderSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.Path(msg.To.Email), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open mailbox for %s: %w", msg.To.Email, err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "Date: %s\nFrom: %s\nTo: %s\nSubject: %s\n\n%s\n\n",
		time.Now().UTC().Format(time.RFC1123Z), msg.From, msg.To, msg.EncodedSubject(), msg.HTML)
	if err != nil {
		return fmt.Errorf("write mailbox for %s: %w", msg.To.Email, err)
	}
	return nil
}

// Path is the mailbox file of one recipient.
func (s *FolderSender) Path(to string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(strings.ToLower(to))
	return filepath.Join(s.dir, name)
}
