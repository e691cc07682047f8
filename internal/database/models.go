package database

import (
	"time"

	"github.com/uptrace/bun"
)

type Counter struct {
	bun.BaseModel `bun:"table:counters"`

	Name  string `bun:"name,pk"`
	Count int64  `bun:"count,notnull"`
}

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	UID               int64      `bun:"uid,pk"`
	Name              string     `bun:"name,notnull"`
	Email             string     `bun:"email,notnull,unique"`
	Password          string     `bun:"password,notnull"`
	Code              string     `bun:"code,notnull"`
	Process           string     `bun:"process,notnull"`
	Verified          bool       `bun:"verified,notnull"`
	RegistrationDate  time.Time  `bun:"registration_date,notnull"`
	VerificationDate  *time.Time `bun:"verification_date"`
	CodeGeneratedDate *time.Time `bun:"code_generated_date"`
	GitHub            string     `bun:"github,notnull"`
	GitLab            string     `bun:"gitlab,notnull"`
	LinkedIn          string     `bun:"linkedin,notnull"`
	About             string     `bun:"about,notnull"`
}

type Group struct {
	bun.BaseModel `bun:"table:groups,alias:g"`

	GID          int64     `bun:"gid,pk"`
	Name         string    `bun:"name,notnull"`
	Location     string    `bun:"location,notnull"`
	Description  string    `bun:"description,notnull"`
	Owner        int64     `bun:"owner,notnull"`
	CreationDate time.Time `bun:"creation_date,notnull"`
}

type Membership struct {
	bun.BaseModel `bun:"table:memberships,alias:m"`

	GID      int64     `bun:"gid,pk"`
	UID      int64     `bun:"uid,pk"`
	Admin    bool      `bun:"admin,notnull"`
	JoinDate time.Time `bun:"join_date,notnull"`
	Seq      int64     `bun:"seq,scanonly"`
}

type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	EID         int64     `bun:"eid,pk"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description,notnull"`
	Date        time.Time `bun:"date,notnull"`
	Location    string    `bun:"location,notnull"`
	GroupID     int64     `bun:"group_id,notnull"`
	Status      string    `bun:"status,notnull"`
}

type RSVP struct {
	bun.BaseModel `bun:"table:rsvps,alias:r"`

	EID    int64     `bun:"eid,pk"`
	UID    int64     `bun:"uid,pk"`
	Status bool      `bun:"status,notnull"`
	Date   time.Time `bun:"date,notnull"`
	Seq    int64     `bun:"seq,scanonly"`
}

type Audit struct {
	bun.BaseModel `bun:"table:audit,alias:a"`

	ID   int64          `bun:"id,pk,autoincrement"`
	Date time.Time      `bun:"date,notnull"`
	Type string         `bun:"type,notnull"`
	Data map[string]any `bun:"data,type:jsonb"`
}
