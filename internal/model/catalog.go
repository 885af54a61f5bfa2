package model

// Room types accepted by Room.Type.
const (
	RoomLecture = "Lecture"
	RoomLab     = "Lab"
	RoomSeminar = "Seminar"
)

// Faculty is a teaching staff member of one department. Email is unique within the department.
type Faculty struct {
	ID          string  `json:"id"`
	Department  string  `json:"department"`
	Name        string  `json:"name" validate:"required,max=100"`
	Email       string  `json:"email" validate:"required,email,max=254"`
	Designation *string `json:"designation" validate:"omitempty,max=50"`
}

// Room is a teaching space. Name is unique within the department.
type Room struct {
	ID         string `json:"id"`
	Department string `json:"department"`
	Name       string `json:"name" validate:"required,max=50"`
	Capacity   int    `json:"capacity" validate:"gte=0"`
	Type       string `json:"type" validate:"required,oneof=Lecture Lab Seminar"`
}

// Subject is a course taught by a department. Code is unique within the department.
type Subject struct {
	ID         string `json:"id"`
	Department string `json:"department"`
	Name       string `json:"name" validate:"required,max=100"`
	Code       string `json:"code" validate:"required,max=20"`
	Credits    int    `json:"credits" validate:"gte=0"`
}

// TimetableEntry places one subject, taught by one faculty member, in one room for a weekly slot.
// DayOfWeek runs from 0 (Monday) to 6 (Sunday); times are "HH:MM".
// The *Details fields are filled on reads and ignored on writes.
type TimetableEntry struct {
	ID           string `json:"id"`
	Department   string `json:"department"`
	DayOfWeek    int    `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime    string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime      string `json:"end_time" validate:"required,datetime=15:04"`
	FacultyID    string `json:"faculty" validate:"required,uuid"`
	SubjectID    string `json:"subject" validate:"required,uuid"`
	RoomID       string `json:"room" validate:"required,uuid"`
	Semester     int    `json:"semester" validate:"gte=1,lte=12"`
	Section      string `json:"section" validate:"required,max=10"`
	AcademicYear int    `json:"academic_year" validate:"gte=2000,lte=2100"`

	FacultyDetails *Faculty `json:"faculty_details,omitempty" validate:"-"`
	SubjectDetails *Subject `json:"subject_details,omitempty" validate:"-"`
	RoomDetails    *Room    `json:"room_details,omitempty" validate:"-"`
}

func (f *Faculty) SetKey(id, department string) { f.ID, f.Department = id, department }

func (r *Room) SetKey(id, department string) { r.ID, r.Department = id, department }

func (s *Subject) SetKey(id, department string) { s.ID, s.Department = id, department }

func (e *TimetableEntry) SetKey(id, department string) { e.ID, e.Department = id, department }
