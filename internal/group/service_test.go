package group

import (
	"bytes"
	"context"
	"html/template"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/meetos/internal/logging"
	"github.com/redmonkez12/meetos/internal/store"
	"github.com/redmonkez12/meetos/internal/store/memory"
)

type recordingNotifier struct {
	mu       sync.Mutex
	created  []int64
	joined   []int64
	left     []int64
	messages map[string]template.HTML
}

func (n *recordingNotifier) GroupCreated(_ context.Context, owner *store.User, _ *store.Group) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, owner.UID)
}

func (n *recordingNotifier) MemberJoined(_ context.Context, _, member *store.User, _ *store.Group) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.joined = append(n.joined, member.UID)
}

func (n *recordingNotifier) MemberLeft(_ context.Context, _, member *store.User, _ *store.Group) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.left = append(n.left, member.UID)
}

func (n *recordingNotifier) MessageMembers(_ context.Context, members []store.User, _ *store.Group, subject string, content template.HTML) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.messages == nil {
		n.messages = map[string]template.HTML{}
	}
	for _, m := range members {
		n.messages[m.Email+"|"+subject] = content
	}
}

type nopAuditor struct{ types []string }

func (a *nopAuditor) Record(_ context.Context, typ string, _ map[string]any) {
	a.types = append(a.types, typ)
}

func setup(t *testing.T) (*Service, *memory.Store, *recordingNotifier) {
	t.Helper()
	st := memory.New()
	ctx := context.Background()
	for uid, email := range map[int64]string{1: "admin@meet-os.com", 2: "owner@meet-os.com", 3: "member@meet-os.com"} {
		require.NoError(t, st.AddUser(ctx, &store.User{UID: uid, Name: "User", Email: email, Verified: true}))
	}
	n := &recordingNotifier{}
	return NewService(st, n, &nopAuditor{}), st, n
}

func TestCreate_RoundTrip(t *testing.T) {
	svc, st, n := setup(t)
	ctx := context.Background()

	g, err := svc.Create(ctx, Input{Name: " Rust Maven ", Location: "Virtual", Description: "Learn *Rust*"}, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), g.GID)
	assert.Equal(t, "Rust Maven", g.Name)
	assert.Equal(t, []int64{2}, n.created)

	got, err := st.GetGroupByID(ctx, g.GID)
	require.NoError(t, err)
	assert.Equal(t, *g, *got)

	owned, err := st.GroupsByOwner(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}

func TestCreate_Errors(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.Create(context.Background(), Input{Name: "Go"}, 42)
	assert.ErrorIs(t, err, ErrOwnerNotFound)

	_, err = svc.Create(context.Background(), Input{Name: "  "}, 2)
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestJoinAndLeave(t *testing.T) {
	svc, st, n := setup(t)
	ctx := context.Background()

	g, err := svc.Create(ctx, Input{Name: "Rust"}, 2)
	require.NoError(t, err)
	owner, _ := st.GetUserByID(ctx, 2)
	member, _ := st.GetUserByID(ctx, 3)

	assert.ErrorIs(t, svc.Join(ctx, owner, g), ErrOwnerCannotJoin)
	assert.ErrorIs(t, svc.Leave(ctx, owner, g), ErrOwnerCannotLeave)
	assert.ErrorIs(t, svc.Leave(ctx, member, g), ErrNotMember)

	require.NoError(t, svc.Join(ctx, member, g))
	assert.ErrorIs(t, svc.Join(ctx, member, g), ErrAlreadyMember)
	assert.Equal(t, []int64{3}, n.joined)

	d, err := svc.Details(ctx, g.GID, member)
	require.NoError(t, err)
	assert.True(t, d.IsMember)
	assert.Equal(t, "owner@meet-os.com", d.Owner.Email)

	require.NoError(t, svc.Leave(ctx, member, g))
	assert.Equal(t, []int64{3}, n.left)

	d, err = svc.Details(ctx, g.GID, member)
	require.NoError(t, err)
	assert.False(t, d.IsMember)
}

func TestJoin_MissingOwnerIsLogged(t *testing.T) {
	svc, st, n := setup(t)

	var buf bytes.Buffer
	ctx := logging.WithContext(context.Background(), logging.NewLoggerWithWriter(&buf, false))

	g := &store.Group{GID: 5, Name: "Orphan", Owner: 99}
	require.NoError(t, st.AddGroup(ctx, g))
	member, _ := st.GetUserByID(ctx, 3)

	require.NoError(t, svc.Join(ctx, member, g))
	assert.Empty(t, n.joined)
	assert.Contains(t, buf.String(), "failed to load group owner")
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestEnsureMember(t *testing.T) {
	svc, st, _ := setup(t)
	ctx := context.Background()

	g, err := svc.Create(ctx, Input{Name: "Rust"}, 2)
	require.NoError(t, err)
	owner, _ := st.GetUserByID(ctx, 2)
	member, _ := st.GetUserByID(ctx, 3)

	require.NoError(t, svc.EnsureMember(ctx, owner, g))
	require.NoError(t, svc.EnsureMember(ctx, member, g))
	require.NoError(t, svc.EnsureMember(ctx, member, g))

	members, err := st.MembersOfGroup(ctx, g.GID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, int64(3), members[0].UID)
}

func TestContactMembers(t *testing.T) {
	svc, st, n := setup(t)
	ctx := context.Background()

	g, err := svc.Create(ctx, Input{Name: "Rust"}, 2)
	require.NoError(t, err)
	member, _ := st.GetUserByID(ctx, 3)
	require.NoError(t, svc.Join(ctx, member, g))

	_, err = svc.ContactMembers(ctx, g, " Hi  ", "text")
	assert.ErrorIs(t, err, ErrSubjectTooShort)

	_, err = svc.ContactMembers(ctx, g, "Hello there", " ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = svc.ContactMembers(ctx, g, "Hello\r\nBcc: victim@evil.com", "text")
	assert.ErrorIs(t, err, ErrInvalidSubject)
	_, err = svc.ContactMembers(ctx, g, "Hello\nthere", "text")
	assert.ErrorIs(t, err, ErrInvalidSubject)
	assert.Empty(t, n.messages)

	count, err := svc.ContactMembers(ctx, g, "Hello there", "Meet at **noon**")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, string(n.messages["member@meet-os.com|Hello there"]), "<strong>noon</strong>")
}

func TestUpdate(t *testing.T) {
	svc, st, _ := setup(t)
	ctx := context.Background()

	g, err := svc.Create(ctx, Input{Name: "Rust"}, 2)
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, g.GID, Input{Name: "Rust Maven", Location: "Budapest", Description: "new"}))
	got, err := st.GetGroupByID(ctx, g.GID)
	require.NoError(t, err)
	assert.Equal(t, "Rust Maven", got.Name)
	assert.Equal(t, "Budapest", got.Location)
	assert.Equal(t, int64(2), got.Owner)

	assert.ErrorIs(t, svc.Update(ctx, 99, Input{Name: "x"}), store.ErrNotFound)
}
