package Models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Department struct {
	gorm.Model
	Name     string `json:"name" gorm:"uniqueIndex;size:100"`
	ParentID *uint  `json:"parent_id" gorm:"index"`

	Members []Member `json:"members,omitempty" gorm:"foreignKey:DepartmentID"`
}

type Member struct {
	gorm.Model
	Name         string `json:"name" gorm:"size:100;not null"`
	Email        string `json:"email" gorm:"uniqueIndex;size:255"`
	Phone        string `json:"phone" gorm:"size:20"`
	Password     []byte `json:"-"`
	Permission   int    `json:"permission"`
	DepartmentID *uint  `json:"department_id" gorm:"index"`

	// Areas the member works in, e.g. ["backend", "illustration"]
	Domains datatypes.JSON `json:"domains"`

	// Average of all finalized period task scores, recomputed by the
	// member score job.
	PeriodTaskScore float64 `json:"period_task_score"`

	// Set daily by the department rollup when today's progress is below
	// the department mean.
	BelowAverageFlag      bool       `json:"below_average_flag"`
	BelowAverageLastCheck *time.Time `json:"below_average_last_check"`
}

func (m *Member) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	m.Password = hashed
	return nil
}

func (m *Member) CheckPassword(password string) bool {
	if len(m.Password) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(m.Password, []byte(password)) == nil
}

type FCMToken struct {
	gorm.Model
	MemberID uint   `json:"member_id" gorm:"index"`
	Token    string `json:"token" gorm:"uniqueIndex;size:255"`
}
