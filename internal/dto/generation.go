package dto

// GenerateTimetableRequest asks for a fresh timetable for a department section.
type GenerateTimetableRequest struct {
	DepartmentID string `json:"departmentId" validate:"required"`
	Section      string `json:"section" validate:"required"`
	Semester     int    `json:"semester" validate:"omitempty,min=1,max=10"`
	AcademicYear string `json:"academicYear"`
	// Regenerate supersedes an existing active timetable instead of
	// rejecting the request with a conflict.
	Regenerate bool `json:"regenerate"`
}

// AttemptView summarises one rung of the relaxation ladder.
type AttemptView struct {
	Applied    []string `json:"applied"`
	Outcome    string   `json:"outcome"`
	Steps      int      `json:"steps"`
	Backtracks int      `json:"backtracks"`
	ElapsedMS  int64    `json:"elapsedMs"`
}

// GenerationStatsView summarises the search effort behind a result.
type GenerationStatsView struct {
	Units      int   `json:"units"`
	Steps      int   `json:"steps"`
	Backtracks int   `json:"backtracks"`
	MaxDepth   int   `json:"maxDepth"`
	ElapsedMS  int64 `json:"elapsedMs"`
}

// GenerateTimetableResponse reports the persisted timetable and how the
// search obtained it.
type GenerateTimetableResponse struct {
	TimetableID string              `json:"timetableId"`
	Version     int                 `json:"version"`
	SlotCount   int                 `json:"slotCount"`
	Relaxations []string            `json:"relaxations"`
	Attempts    []AttemptView       `json:"attempts"`
	Stats       GenerationStatsView `json:"stats"`
}

// InfeasibleDetails carries the capacity diagnostics attached to an
// infeasible generation outcome.
type InfeasibleDetails struct {
	RequiredPeriods       int      `json:"requiredPeriods"`
	RoomPeriods           int      `json:"roomPeriods"`
	LabPeriodsRequired    int      `json:"labPeriodsRequired"`
	LabRoomPeriods        int      `json:"labRoomPeriods"`
	TheoryPeriodsRequired int      `json:"theoryPeriodsRequired"`
	TheoryRoomPeriods     int      `json:"theoryRoomPeriods"`
	BlockedObligationIDs  []string `json:"blockedObligationIds,omitempty"`
	Bottleneck            string   `json:"bottleneck"`
	RelaxationsTried      []string `json:"relaxationsTried"`
}

// GenerationTimeoutDetails carries the aggregated effort behind a generation
// that exhausted its time budget.
type GenerationTimeoutDetails struct {
	BudgetMS int64               `json:"budgetMs"`
	Attempts []AttemptView       `json:"attempts"`
	Stats    GenerationStatsView `json:"stats"`
}
