package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// Identity is the authenticated caller as seen by the exam services.
// Accounts live in an external user service; only the id and role reach us.
type Identity struct {
	UserID uint
	Role   UserRole
}

func (i Identity) IsStudent() bool { return i.Role == Student }

func (i Identity) IsAdmin() bool { return i.Role == Admin }

// CanManage reports whether the caller may author or grade an exam owned by teacherID.
func (i Identity) CanManage(teacherID uint) bool {
	if i.IsAdmin() {
		return true
	}
	return i.Role == Teacher && i.UserID == teacherID
}
