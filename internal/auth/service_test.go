package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/meetos/internal/store"
	"github.com/redmonkez12/meetos/internal/store/memory"
	"github.com/redmonkez12/meetos/internal/user"
)

type sentMail struct {
	kind string
	user store.User
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *recordingNotifier) add(kind string, u *store.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{kind: kind, user: *u})
}

func (n *recordingNotifier) SendVerification(_ context.Context, u *store.User) {
	n.add("verification", u)
}
func (n *recordingNotifier) SendPasswordReset(_ context.Context, u *store.User) {
	n.add("reset", u)
}
func (n *recordingNotifier) SendPasswordChanged(_ context.Context, u *store.User) {
	n.add("changed", u)
}
func (n *recordingNotifier) NotifyAdminsNewUser(_ context.Context, u *store.User) {
	n.add("admin-new", u)
}
func (n *recordingNotifier) NotifyAdminsUserVerified(_ context.Context, u *store.User) {
	n.add("admin-verified", u)
}

func (n *recordingNotifier) last(kind string) (store.User, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].kind == kind {
			return n.sent[i].user, true
		}
	}
	return store.User{}, false
}

type recordingAuditor struct {
	types []string
}

func (a *recordingAuditor) Record(_ context.Context, typ string, _ map[string]any) {
	a.types = append(a.types, typ)
}

func newTestService(t *testing.T) (*Service, *memory.Store, *recordingNotifier, *recordingAuditor) {
	t.Helper()
	st := memory.New()
	n := &recordingNotifier{}
	a := &recordingAuditor{}
	return NewService(st, n, a), st, n, a
}

func TestRegister(t *testing.T) {
	svc, st, n, a := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Foo Bar", " Foo@Meet-OS.com ", "123456")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.UID)
	assert.Equal(t, "foo@meet-os.com", u.Email)
	assert.False(t, u.Verified)
	assert.Equal(t, store.ProcessRegister, u.Process)
	assert.NotEmpty(t, u.Code)
	assert.NotEqual(t, "123456", u.Password)

	mail, ok := n.last("verification")
	require.True(t, ok)
	assert.Equal(t, u.Code, mail.Code)
	_, ok = n.last("admin-new")
	assert.True(t, ok)
	assert.Equal(t, []string{store.AuditRegister}, a.types)

	stored, err := st.GetUserByEmail(ctx, "foo@meet-os.com")
	require.NoError(t, err)
	assert.Equal(t, u.UID, stored.UID)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		email    string
		password string
		want     error
	}{
		{"invalid email", "Foo", "not-an-email", "123456", ErrInvalidEmail},
		{"display name email", "Foo", "Foo <foo@meet-os.com>", "123456", ErrInvalidEmail},
		{"short password", "Foo", "foo@meet-os.com", "123", ErrPasswordTooShort},
		{"blank password", "Foo", "foo@meet-os.com", "      ", ErrPasswordTooShort},
		{"long name", "Abcdefghij Abcdefghij Abcdefghij Abcdefghij Abcdefghij", "foo@meet-os.com", "123456", user.ErrNameTooLong},
		{"bad name", "Foo<script>", "foo@meet-os.com", "123456", user.ErrInvalidName},
		{"empty name", " ", "foo@meet-os.com", "123456", user.ErrNameRequired},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, st, _, _ := newTestService(t)
			_, err := svc.Register(context.Background(), tc.userName, tc.email, tc.password)
			assert.ErrorIs(t, err, tc.want)

			users, err := st.ListUsers(context.Background())
			require.NoError(t, err)
			assert.Empty(t, users)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Foo Bar", "foo@meet-os.com", "123456")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Foo Bar", "FOO@meet-os.com", "123456")
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	users, err := st.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	ctx := context.Background()

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, "Foo Bar", "foo@meet-os.com", "123456")
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	}
	assert.Equal(t, 1, wins)

	users, err := st.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestVerifyEmail(t *testing.T) {
	svc, _, n, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Foo Bar", "foo@meet-os.com", "123456")
	require.NoError(t, err)

	_, err = svc.VerifyEmail(ctx, 99, u.Code)
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = svc.VerifyEmail(ctx, u.UID, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = svc.VerifyEmail(ctx, u.UID, "")
	assert.ErrorIs(t, err, ErrInvalidCode)

	verified, err := svc.VerifyEmail(ctx, u.UID, u.Code)
	require.NoError(t, err)
	assert.True(t, verified.Verified)
	assert.Empty(t, verified.Code)
	assert.NotNil(t, verified.VerificationDate)

	_, ok := n.last("admin-verified")
	assert.True(t, ok)

	// the same link a second time
	_, err = svc.VerifyEmail(ctx, u.UID, u.Code)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyEmail_RejectsResetCode(t *testing.T) {
	svc, _, n, _ := newTestService(t)
	ctx := context.Background()

	u := registerAndVerify(t, svc, "foo@meet-os.com", "123456")
	_, err := svc.RequestPasswordReset(ctx, u.Email)
	require.NoError(t, err)
	reset, _ := n.last("reset")

	_, err = svc.VerifyEmail(ctx, u.UID, reset.Code)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestResendVerification(t *testing.T) {
	svc, _, n, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ResendVerification(ctx, "nobody@meet-os.com")
	assert.ErrorIs(t, err, ErrUnknownUser)

	u, err := svc.Register(ctx, "Foo Bar", "foo@meet-os.com", "123456")
	require.NoError(t, err)
	firstCode := u.Code

	resent, err := svc.ResendVerification(ctx, "foo@meet-os.com")
	require.NoError(t, err)
	assert.NotEqual(t, firstCode, resent.Code)
	assert.Equal(t, store.ProcessRegister, resent.Process)

	// the old code was replaced
	_, err = svc.VerifyEmail(ctx, u.UID, firstCode)
	assert.ErrorIs(t, err, ErrInvalidCode)

	mail, _ := n.last("verification")
	_, err = svc.VerifyEmail(ctx, u.UID, mail.Code)
	require.NoError(t, err)

	_, err = svc.ResendVerification(ctx, "foo@meet-os.com")
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestLogin(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "bad", "123456")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Login(ctx, "foo@meet-os.com", "123456")
	assert.ErrorIs(t, err, ErrUnknownUser)

	u, err := svc.Register(ctx, "Foo Bar", "foo@meet-os.com", "123456")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "foo@meet-os.com", "123456")
	assert.ErrorIs(t, err, ErrUnverified)

	_, err = svc.VerifyEmail(ctx, u.UID, u.Code)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "foo@meet-os.com", "654321")
	assert.ErrorIs(t, err, ErrBadPassword)

	got, err := svc.Login(ctx, "Foo@Meet-OS.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, u.UID, got.UID)
}

func TestPasswordReset(t *testing.T) {
	svc, _, n, a := newTestService(t)
	ctx := context.Background()

	u := registerAndVerify(t, svc, "foo@meet-os.com", "123456")

	_, err := svc.RequestPasswordReset(ctx, "nobody@meet-os.com")
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = svc.RequestPasswordReset(ctx, "foo@meet-os.com")
	require.NoError(t, err)
	mail, ok := n.last("reset")
	require.True(t, ok)
	assert.Equal(t, store.ProcessResetPassword, mail.Process)

	_, err = svc.CheckResetCode(ctx, u.UID, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCode)
	_, err = svc.SaveNewPassword(ctx, 99, mail.Code, "abcdef")
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = svc.SaveNewPassword(ctx, u.UID, mail.Code, "abc")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	// a failed attempt keeps the link usable
	_, err = svc.SaveNewPassword(ctx, u.UID, mail.Code, "abcdef")
	require.NoError(t, err)

	_, ok = n.last("changed")
	assert.True(t, ok)
	assert.Contains(t, a.types, store.AuditResetPassword)

	_, err = svc.Login(ctx, "foo@meet-os.com", "123456")
	assert.ErrorIs(t, err, ErrBadPassword)
	_, err = svc.Login(ctx, "foo@meet-os.com", "abcdef")
	assert.NoError(t, err)

	_, err = svc.SaveNewPassword(ctx, u.UID, mail.Code, "another")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestSaveNewPassword_RejectsRegisterCode(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Foo Bar", "foo@meet-os.com", "123456")
	require.NoError(t, err)

	_, err = svc.SaveNewPassword(ctx, u.UID, u.Code, "abcdef")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func registerAndVerify(t *testing.T, svc *Service, email, password string) *store.User {
	t.Helper()
	ctx := context.Background()
	u, err := svc.Register(ctx, "Foo Bar", email, password)
	require.NoError(t, err)
	u, err = svc.VerifyEmail(ctx, u.UID, u.Code)
	require.NoError(t, err)
	return u
}
