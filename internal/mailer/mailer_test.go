package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"strings"
	"testing"
	"time"

	gomail "github.com/wneessen/go-mail"
)

func TestNewSMTPSender_NotConfigured(t *testing.T) {
	if _, err := NewSMTPSender(SMTPConfig{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("NewSMTPSender() error = %v, want ErrNotConfigured", err)
	}
	if _, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("NewSMTPSender() without sender error = %v, want ErrNotConfigured", err)
	}
}

func TestBuild_ParsesAsMultipart(t *testing.T) {
	pdf := bytes.Repeat([]byte("%PDF-1.3 data "), 20)
	raw, err := Build("ledger@example.com", Message{
		To:          []string{"a@example.com", "b@example.com"},
		Subject:     "Invoice from Acme",
		Body:        "Total 1150",
		Attachments: []Attachment{{Name: "invoice.pdf", ContentType: "application/pdf", Data: pdf}},
	}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	m, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	to, err := mail.ParseAddressList(m.Header.Get("To"))
	if err != nil || len(to) != 2 || to[0].Address != "a@example.com" || to[1].Address != "b@example.com" {
		t.Errorf("To = %q (%v)", m.Header.Get("To"), err)
	}
	if got := m.Header.Get("Subject"); got != "Invoice from Acme" {
		t.Errorf("Subject = %q", got)
	}

	mediaType, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/mixed" {
		t.Fatalf("Content-Type = %q (%v)", mediaType, err)
	}

	mr := multipart.NewReader(m.Body, params["boundary"])
	text, err := mr.NextPart()
	if err != nil {
		t.Fatalf("NextPart() error = %v", err)
	}
	body, _ := io.ReadAll(text)
	if strings.TrimSpace(string(body)) != "Total 1150" {
		t.Errorf("body = %q", body)
	}

	att, err := mr.NextPart()
	if err != nil {
		t.Fatalf("NextPart() error = %v", err)
	}
	if att.FileName() != "invoice.pdf" {
		t.Errorf("attachment name = %q", att.FileName())
	}
	if ct := att.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/pdf") {
		t.Errorf("attachment Content-Type = %q", ct)
	}
	encoded, _ := io.ReadAll(att)
	decoded, err := base64.StdEncoding.DecodeString(strings.NewReplacer("\r", "", "\n", "").Replace(string(encoded)))
	if err != nil || !bytes.Equal(decoded, pdf) {
		t.Errorf("attachment payload mismatch (%v)", err)
	}
}

func TestSMTPSender_Send(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Username: "bot@example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("NewSMTPSender() error = %v", err)
	}

	var sent []byte
	s.deliver = func(ctx context.Context, client *gomail.Client, msg *gomail.Msg) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("deliver called without a deadline")
		}
		var buf bytes.Buffer
		if _, err := msg.WriteTo(&buf); err != nil {
			return err
		}
		sent = buf.Bytes()
		return nil
	}

	if err := s.Send(context.Background(), Message{To: []string{"ops@example.com"}, Subject: "x"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	m, err := mail.ReadMessage(bytes.NewReader(sent))
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	from, err := mail.ParseAddress(m.Header.Get("From"))
	if err != nil || from.Address != "bot@example.com" {
		t.Errorf("From = %q (%v)", m.Header.Get("From"), err)
	}

	if err := s.Send(context.Background(), Message{}); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("Send() without recipients error = %v", err)
	}
}

func TestSMTPSender_SilentRelayHonoursContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	conns := make(chan net.Conn, 16)
	t.Cleanup(func() {
		ln.Close()
		for {
			select {
			case conn := <-conns:
				conn.Close()
			default:
				return
			}
		}
	})

	// Accept connections and never send the SMTP greeting.
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns <- conn
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	s, err := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: port, From: "ledger@example.com", Timeout: time.Minute})
	if err != nil {
		t.Fatalf("NewSMTPSender() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = s.Send(ctx, Message{To: []string{"ops@example.com"}, Subject: "x"})
	if err == nil {
		t.Fatal("Send() error = nil, want failure from silent relay")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Send() took %v, want it bounded by the context", elapsed)
	}
}
