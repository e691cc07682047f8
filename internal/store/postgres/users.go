package postgres

import (
	"context"
	"time"

	"github.com/redmonkez12/meetos/internal/database"
	"github.com/redmonkez12/meetos/internal/store"
)

func (s *Store) AddUser(ctx context.Context, u *store.User) error {
	_, err := s.db.NewInsert().Model(toDBUser(u)).Exec(ctx)
	return mapError(err, "create user")
}

func (s *Store) GetUserByID(ctx context.Context, uid int64) (*store.User, error) {
	row := new(database.User)
	if err := s.db.NewSelect().Model(row).Where("uid = ?", uid).Scan(ctx); err != nil {
		return nil, mapError(err, "get user by id")
	}
	return fromDBUser(row), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	row := new(database.User)
	if err := s.db.NewSelect().Model(row).Where("email = ?", email).Scan(ctx); err != nil {
		return nil, mapError(err, "get user by email")
	}
	return fromDBUser(row), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]store.User, error) {
	var rows []database.User
	if err := s.db.NewSelect().Model(&rows).Order("uid ASC").Scan(ctx); err != nil {
		return nil, mapError(err, "list users")
	}
	out := make([]store.User, 0, len(rows))
	for i := range rows {
		out = append(out, *fromDBUser(&rows[i]))
	}
	return out, nil
}

func (s *Store) SetUserCode(ctx context.Context, email, process, code string) error {
	res, err := s.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("code = ?", code).
		Set("process = ?", process).
		Set("code_generated_date = ?", time.Now().UTC()).
		Where("email = ?", email).
		Exec(ctx)
	if err != nil {
		return mapError(err, "set user code")
	}
	return requireRows(res, "set user code")
}

// ConsumeCode clears the code with a conditional update. Only the request
// whose WHERE clause still matches gets the row back.
func (s *Store) ConsumeCode(ctx context.Context, uid int64, process, code string) (*store.User, error) {
	row := new(database.User)
	res, err := s.db.NewUpdate().
		Model(row).
		Set("code = ''").
		Where("uid = ?", uid).
		Where("process = ?", process).
		Where("code = ?", code).
		Where("code <> ''").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, mapError(err, "consume code")
	}
	if err := requireRows(res, "consume code"); err != nil {
		return nil, err
	}
	return fromDBUser(row), nil
}

func (s *Store) MarkVerified(ctx context.Context, uid int64, at time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("verified = ?", true).
		Set("verification_date = ?", at).
		Where("uid = ?", uid).
		Exec(ctx)
	if err != nil {
		return mapError(err, "mark user verified")
	}
	return requireRows(res, "mark user verified")
}

func (s *Store) SavePassword(ctx context.Context, uid int64, hash string) error {
	res, err := s.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password = ?", hash).
		Where("uid = ?", uid).
		Exec(ctx)
	if err != nil {
		return mapError(err, "save password")
	}
	return requireRows(res, "save password")
}

func (s *Store) UpdateProfile(ctx context.Context, uid int64, p store.ProfileUpdate) error {
	res, err := s.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("name = ?", p.Name).
		Set("github = ?", p.GitHub).
		Set("gitlab = ?", p.GitLab).
		Set("linkedin = ?", p.LinkedIn).
		Set("about = ?", p.About).
		Where("uid = ?", uid).
		Exec(ctx)
	if err != nil {
		return mapError(err, "update profile")
	}
	return requireRows(res, "update profile")
}

func toDBUser(u *store.User) *database.User {
	return &database.User{
		UID:               u.UID,
		Name:              u.Name,
		Email:             u.Email,
		Password:          u.Password,
		Code:              u.Code,
		Process:           u.Process,
		Verified:          u.Verified,
		RegistrationDate:  u.RegistrationDate,
		VerificationDate:  u.VerificationDate,
		CodeGeneratedDate: u.CodeGeneratedDate,
		GitHub:            u.GitHub,
		GitLab:            u.GitLab,
		LinkedIn:          u.LinkedIn,
		About:             u.About,
	}
}

func fromDBUser(row *database.User) *store.User {
	return &store.User{
		UID:               row.UID,
		Name:              row.Name,
		Email:             row.Email,
		Password:          row.Password,
		Code:              row.Code,
		Process:           row.Process,
		Verified:          row.Verified,
		RegistrationDate:  row.RegistrationDate,
		VerificationDate:  row.VerificationDate,
		CodeGeneratedDate: row.CodeGeneratedDate,
		GitHub:            row.GitHub,
		GitLab:            row.GitLab,
		LinkedIn:          row.LinkedIn,
		About:             row.About,
	}
}
