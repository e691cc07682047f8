// Package email formats the notification emails and hands them to a Sender
// in the background.
package email

import (
	"context"
	"fmt"
	"html/template"
	"sync"

	"github.com/redmonkez12/meetos/internal/logging"
	"github.com/redmonkez12/meetos/internal/store"
)

// Notifier sends every message from its own goroutine. Failures are logged
// and never reach the request that triggered them.
type Notifier struct {
	sender  Sender
	from    Address
	baseURL string
	admins  []string
	tmpl    templates
	wg      sync.WaitGroup
	onSend  func(kind string, err error)
}

func NewNotifier(sender Sender, from Address, baseURL string, admins []string) (*Notifier, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Notifier{
		sender:  sender,
		from:    from,
		baseURL: baseURL,
		admins:  admins,
		tmpl:    tmpl,
	}, nil
}

// OnSend registers a callback invoked after every delivery attempt.
func (n *Notifier) OnSend(fn func(kind string, err error)) {
	n.onSend = fn
}

// Wait blocks until every message dispatched so far was attempted.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

type mailData struct {
	User       *store.User
	Member     *store.User
	Group      *store.Group
	Link       string
	MemberLink string
	Content    template.HTML
}

func (n *Notifier) SendVerification(ctx context.Context, u *store.User) {
	link := fmt.Sprintf("%s/verify-email/%d/%s", n.baseURL, u.UID, u.Code)
	n.send(ctx, "verification", toUser(u), "Verify your Meet-OS registration", mailData{User: u, Link: link})
}

func (n *Notifier) SendPasswordReset(ctx context.Context, u *store.User) {
	link := fmt.Sprintf("%s/save-password/%d/%s", n.baseURL, u.UID, u.Code)
	n.send(ctx, "reset-password", toUser(u), "Reset your Meet-OS password", mailData{User: u, Link: link})
}

func (n *Notifier) SendPasswordChanged(ctx context.Context, u *store.User) {
	n.send(ctx, "password-changed", toUser(u), "Your Meet-OS password was changed", mailData{User: u})
}

func (n *Notifier) NotifyAdminsNewUser(ctx context.Context, u *store.User) {
	data := mailData{User: u, Link: n.userLink(u.UID)}
	for _, admin := range n.admins {
		n.send(ctx, "admin-new-user", Address{Email: admin}, "New Meet-OS registration!", data)
	}
}

func (n *Notifier) NotifyAdminsUserVerified(ctx context.Context, u *store.User) {
	data := mailData{User: u, Link: n.userLink(u.UID)}
	for _, admin := range n.admins {
		n.send(ctx, "admin-user-verified", Address{Email: admin}, "New Meet-OS user verified!", data)
	}
}

func (n *Notifier) GroupCreated(ctx context.Context, owner *store.User, g *store.Group) {
	data := mailData{User: owner, Group: g, Link: n.groupLink(g.GID)}
	n.send(ctx, "group-created", toUser(owner), "Meet-OS group created", data)
}

func (n *Notifier) MemberJoined(ctx context.Context, owner, member *store.User, g *store.Group) {
	data := mailData{User: owner, Member: member, Group: g, Link: n.groupLink(g.GID), MemberLink: n.userLink(member.UID)}
	n.send(ctx, "member-joined", toUser(owner), fmt.Sprintf("User %s joined the %s group", member.Name, g.Name), data)
}

func (n *Notifier) MemberLeft(ctx context.Context, owner, member *store.User, g *store.Group) {
	data := mailData{User: owner, Member: member, Group: g, Link: n.groupLink(g.GID), MemberLink: n.userLink(member.UID)}
	n.send(ctx, "member-left", toUser(owner), fmt.Sprintf("User %s left the %s group", member.Name, g.Name), data)
}

// MessageMembers sends one copy of content to every member.
func (n *Notifier) MessageMembers(ctx context.Context, members []store.User, g *store.Group, subject string, content template.HTML) {
	data := mailData{Group: g, Link: n.groupLink(g.GID), Content: content}
	for i := range members {
		n.send(ctx, "group-message", toUser(&members[i]), fmt.Sprintf("[%s] %s", g.Name, subject), data)
	}
}

func (n *Notifier) send(ctx context.Context, kind string, to Address, subject string, data mailData) {
	logger := logging.GetLoggerFromContext(ctx).WithFields(map[string]any{
		"mail": kind,
		"to":   to.Email,
	})

	html, err := n.tmpl.render(kind, data)
	if err != nil {
		logger.Error("failed to render email", "error", err)
		n.report(kind, err)
		return
	}

	msg := Message{From: n.from, To: to, Subject: subject, HTML: html}
	ctx = context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		err := n.sender.Send(ctx, msg)
		if err != nil {
			logger.Warn("failed to send email", "error", err)
		} else {
			logger.Debug("email sent")
		}
		n.report(kind, err)
	}()
}

func (n *Notifier) report(kind string, err error) {
	if n.onSend != nil {
		n.onSend(kind, err)
	}
}

func (n *Notifier) userLink(uid int64) string {
	return fmt.Sprintf("%s/user/%d", n.baseURL, uid)
}

func (n *Notifier) groupLink(gid int64) string {
	return fmt.Sprintf("%s/group/%d", n.baseURL, gid)
}

func toUser(u *store.User) Address {
	return Address{Name: u.Name, Email: u.Email}
}
