// Command seed provisions a development database: schema, departments,
// subjects, teachers, rooms and the teaching obligations generation works
// from. Safe to re-run; inserts are keyed on stable ids.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dept-timetable-api/pkg/config"
	"github.com/noah-isme/dept-timetable-api/pkg/database"
)

type seedSubject struct {
	Code     string
	Name     string
	Weekly   int
	MaxDaily int
	Lab      bool
}

type seedTeacher struct {
	ID       string
	FullName string
}

type seedRoom struct {
	Code     string
	Name     string
	Capacity int
	Type     string
}

type seedDepartment struct {
	ID       string
	Code     string
	Name     string
	Teachers []seedTeacher
	Subjects []seedSubject
	Rooms    []seedRoom
}

// sharedTeacher appears on both rosters so generated timetables exercise
// cross-department booking conflicts.
var sharedTeacher = seedTeacher{ID: "t-shared-001", FullName: "Rahmat Hidayat"}

var departments = []seedDepartment{
	{
		ID:   "dept-cs",
		Code: "CS",
		Name: "Computer Science",
		Teachers: []seedTeacher{
			{ID: "t-cs-001", FullName: "Ayu Lestari"},
			{ID: "t-cs-002", FullName: "Budi Santoso"},
			{ID: "t-cs-003", FullName: "Citra Maharani"},
			{ID: "t-cs-004", FullName: "Dewi Anggraini"},
			{ID: "t-cs-005", FullName: "Eko Prasetyo"},
			sharedTeacher,
		},
		Subjects: []seedSubject{
			{Code: "CS101", Name: "Programming Fundamentals", Weekly: 4, MaxDaily: 2},
			{Code: "CS102", Name: "Data Structures", Weekly: 3, MaxDaily: 2},
			{Code: "CS103", Name: "Discrete Mathematics", Weekly: 3, MaxDaily: 2},
			{Code: "CS104", Name: "Operating Systems", Weekly: 3, MaxDaily: 2},
			{Code: "CS105", Name: "Programming Lab", Weekly: 3, MaxDaily: 3, Lab: true},
			{Code: "CS106", Name: "Networks Lab", Weekly: 3, MaxDaily: 3, Lab: true},
		},
		Rooms: []seedRoom{
			{Code: "CS-R1", Name: "CS Room 1", Capacity: 40, Type: "CLASSROOM"},
			{Code: "CS-R2", Name: "CS Room 2", Capacity: 40, Type: "CLASSROOM"},
			{Code: "CS-R3", Name: "CS Room 3", Capacity: 36, Type: "CLASSROOM"},
			{Code: "CS-L1", Name: "Software Lab", Capacity: 30, Type: "LABORATORY"},
			{Code: "CS-L2", Name: "Networks Lab", Capacity: 28, Type: "LABORATORY"},
		},
	},
	{
		ID:   "dept-ee",
		Code: "EE",
		Name: "Electrical Engineering",
		Teachers: []seedTeacher{
			{ID: "t-ee-001", FullName: "Fajar Nugroho"},
			{ID: "t-ee-002", FullName: "Gita Permata"},
			{ID: "t-ee-003", FullName: "Hendra Wijaya"},
			{ID: "t-ee-004", FullName: "Indah Puspita"},
			{ID: "t-ee-005", FullName: "Joko Susilo"},
			sharedTeacher,
		},
		Subjects: []seedSubject{
			{Code: "EE101", Name: "Circuit Analysis", Weekly: 4, MaxDaily: 2},
			{Code: "EE102", Name: "Signals and Systems", Weekly: 3, MaxDaily: 2},
			{Code: "EE103", Name: "Digital Logic", Weekly: 3, MaxDaily: 2},
			{Code: "EE104", Name: "Electromagnetics", Weekly: 3, MaxDaily: 2},
			{Code: "EE105", Name: "Circuits Lab", Weekly: 3, MaxDaily: 3, Lab: true},
			{Code: "EE106", Name: "Measurements Lab", Weekly: 3, MaxDaily: 3, Lab: true},
		},
		Rooms: []seedRoom{
			{Code: "EE-R1", Name: "EE Room 1", Capacity: 40, Type: "CLASSROOM"},
			{Code: "EE-R2", Name: "EE Room 2", Capacity: 40, Type: "CLASSROOM"},
			{Code: "EE-R3", Name: "EE Room 3", Capacity: 36, Type: "CLASSROOM"},
			{Code: "EE-L1", Name: "Circuits Lab", Capacity: 30, Type: "LABORATORY"},
			{Code: "EE-L2", Name: "Measurements Lab", Capacity: 28, Type: "LABORATORY"},
		},
	},
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS departments (
	id         TEXT PRIMARY KEY,
	code       TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS subjects (
	id         TEXT PRIMARY KEY,
	code       TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS teachers (
	id         TEXT PRIMARY KEY,
	full_name  TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS rooms (
	id            TEXT PRIMARY KEY,
	code          TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	capacity      INT NOT NULL,
	type          TEXT NOT NULL CHECK (type IN ('CLASSROOM', 'LABORATORY')),
	department_id TEXT NOT NULL REFERENCES departments(id),
	active        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS teaching_obligations (
	id                  TEXT PRIMARY KEY,
	department_id       TEXT NOT NULL REFERENCES departments(id),
	section             TEXT NOT NULL,
	subject_id          TEXT NOT NULL REFERENCES subjects(id),
	teacher_id          TEXT NOT NULL REFERENCES teachers(id),
	is_lab              BOOLEAN NOT NULL DEFAULT FALSE,
	periods_per_week    INT NOT NULL,
	max_periods_per_day INT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (department_id, section, subject_id)
)`,
	`CREATE TABLE IF NOT EXISTS timetables (
	id            TEXT PRIMARY KEY,
	department_id TEXT NOT NULL REFERENCES departments(id),
	section       TEXT NOT NULL,
	semester      INT NOT NULL DEFAULT 0,
	academic_year TEXT NOT NULL DEFAULT '',
	version       INT NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT FALSE,
	relaxations   JSONB NOT NULL DEFAULT '[]',
	stats         JSONB NOT NULL DEFAULT '{}',
	generated_at  TIMESTAMPTZ NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	UNIQUE (department_id, section, version)
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS timetables_one_active_per_pair
	ON timetables (department_id, section) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS timetable_slots (
	id            TEXT PRIMARY KEY,
	timetable_id  TEXT NOT NULL REFERENCES timetables(id) ON DELETE CASCADE,
	obligation_id TEXT NOT NULL,
	subject_id    TEXT NOT NULL,
	teacher_id    TEXT NOT NULL,
	room_id       TEXT NOT NULL,
	day           INT NOT NULL,
	period        INT NOT NULL,
	is_lab        BOOLEAN NOT NULL DEFAULT FALSE,
	block_length  INT NOT NULL DEFAULT 1,
	created_at    TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS timetable_slots_timetable_id ON timetable_slots (timetable_id)`,
}

func main() {
	var (
		sectionsFlag string
		wipe         bool
		timeout      time.Duration
	)
	flag.StringVar(&sectionsFlag, "sections", "A,B", "Comma-separated sections to seed per department")
	flag.BoolVar(&wipe, "wipe", false, "Delete existing rows before seeding")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall deadline")
	flag.Parse()

	sections := splitSections(sectionsFlag)
	if len(sections) == 0 {
		log.Fatal("at least one section is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Fatalf("failed to apply schema: %v", err)
		}
	}

	if wipe {
		if err := wipeData(ctx, db); err != nil {
			log.Fatalf("failed to wipe existing data: %v", err)
		}
		log.Print("existing rows deleted")
	}

	total := 0
	for _, dept := range departments {
		n, err := seedOne(ctx, db, dept, sections)
		if err != nil {
			log.Fatalf("failed to seed %s: %v", dept.Code, err)
		}
		total += n
		log.Printf("%s: %d obligations across sections %s", dept.Code, n, strings.Join(sections, ", "))
	}
	log.Printf("done: %d departments, %d obligations", len(departments), total)
}

func splitSections(raw string) []string {
	var sections []string
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.ToUpper(strings.TrimSpace(part))
		if trimmed != "" {
			sections = append(sections, trimmed)
		}
	}
	return sections
}

func wipeData(ctx context.Context, db *sqlx.DB) error {
	tables := []string{"timetable_slots", "timetables", "teaching_obligations", "rooms", "teachers", "subjects", "departments"}
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return nil
}

func seedOne(ctx context.Context, db *sqlx.DB, dept seedDepartment, sections []string) (int, error) {
	if _, err := db.ExecContext(ctx,
		`INSERT INTO departments (id, code, name) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		dept.ID, dept.Code, dept.Name); err != nil {
		return 0, fmt.Errorf("insert department: %w", err)
	}

	for _, teacher := range dept.Teachers {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO teachers (id, full_name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			teacher.ID, teacher.FullName); err != nil {
			return 0, fmt.Errorf("insert teacher %s: %w", teacher.ID, err)
		}
	}

	for _, subject := range dept.Subjects {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO subjects (id, code, name) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			subjectID(subject.Code), subject.Code, subject.Name); err != nil {
			return 0, fmt.Errorf("insert subject %s: %w", subject.Code, err)
		}
	}

	for _, room := range dept.Rooms {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO rooms (id, code, name, capacity, type, department_id) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
			roomID(room.Code), room.Code, room.Name, room.Capacity, room.Type, dept.ID); err != nil {
			return 0, fmt.Errorf("insert room %s: %w", room.Code, err)
		}
	}

	count := 0
	for _, section := range sections {
		for i, subject := range dept.Subjects {
			teacher := dept.Teachers[i%len(dept.Teachers)]
			id := fmt.Sprintf("ob-%s-%s-%s", dept.Code, section, subject.Code)
			if _, err := db.ExecContext(ctx,
				`INSERT INTO teaching_obligations (id, department_id, section, subject_id, teacher_id, is_lab, periods_per_week, max_periods_per_day)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING`,
				strings.ToLower(id), dept.ID, section, subjectID(subject.Code), teacher.ID, subject.Lab, subject.Weekly, subject.MaxDaily); err != nil {
				return 0, fmt.Errorf("insert obligation %s: %w", id, err)
			}
			count++
		}
	}
	return count, nil
}

func subjectID(code string) string {
	return "subj-" + strings.ToLower(code)
}

func roomID(code string) string {
	return "room-" + strings.ToLower(code)
}
