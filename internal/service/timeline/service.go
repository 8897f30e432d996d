package timeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medifollow/care-api/internal/model"
	"github.com/medifollow/care-api/internal/repository"
	apperrors "github.com/medifollow/care-api/pkg/errors"
	"github.com/medifollow/care-api/pkg/metrics"
)

type Service struct {
	appointments repository.AppointmentRepository
	records      repository.MedicalRecordRepository
	logger       *zerolog.Logger
	metrics      *metrics.Metrics
}

func NewService(
	appointments repository.AppointmentRepository,
	records repository.MedicalRecordRepository,
	logger *zerolog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		appointments: appointments,
		records:      records,
		logger:       logger,
		metrics:      m,
	}
}

// PatientTimeline merges the patient's appointments, clinical notes, file
// uploads and record versions into lineage-grouped threads. Patients can
// only read their own timeline; doctors and admins may read any patient's.
// Staff access is deliberately not organisation-scoped here.
func (s *Service) PatientTimeline(ctx context.Context, actor model.Actor, patientID uuid.UUID, filter model.TimelineFilter) ([]model.TimelineThread, error) {
	if actor.Role == model.RolePatient && patientID != actor.ID {
		return nil, apperrors.Unauthorized("cannot view another patient's timeline")
	}

	appointments, err := s.appointments.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	records, err := s.records.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	versions, err := s.records.ListVersionsForPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	events := mapEvents(appointments, records, versions)
	events = applyFilter(events, filter)
	threads := groupThreads(events)

	if s.metrics != nil {
		s.metrics.TimelineBuilds.Inc()
		s.metrics.TimelineEventCounts.Observe(float64(len(events)))
	}
	return threads, nil
}

// mapEvents flattens the three source record sets into timeline events.
// Every appointment yields two events: the appointment itself and one
// synthetic status_change at creation time. Later status transitions are
// not replayed. A medical record carrying both note text and a file
// attachment yields one clinical_note and one file_upload.
func mapEvents(appointments []*model.Appointment, records []*model.MedicalRecord, versions []*model.MedicalRecordVersion) []model.TimelineEvent {
	events := make([]model.TimelineEvent, 0, 2*len(appointments)+len(records)+len(versions))

	for _, apt := range appointments {
		events = append(events, model.TimelineEvent{
			ID:                    "apt-" + apt.ID.String(),
			Type:                  model.EventAppointment,
			Date:                  appointmentDate(apt),
			Title:                 "Appointment with Dr. " + apt.DoctorName,
			Description:           deref(apt.Notes),
			Status:                string(apt.Status),
			ReferenceID:           apt.ID,
			PreviousAppointmentID: apt.PreviousAppointmentID,
			Metadata: model.AppointmentMetadata{
				DoctorName:      apt.DoctorName,
				AppointmentDate: apt.AppointmentDate,
				Time:            apt.StartTime,
			},
		})
		events = append(events, model.TimelineEvent{
			ID:          "apt-create-" + apt.ID.String(),
			Type:        model.EventStatusChange,
			Date:        apt.CreatedAt,
			Title:       "Appointment Created",
			Description: "Appointment request submitted",
			ReferenceID: apt.ID,
			Metadata: model.StatusChangeMetadata{
				InitialStatus: string(apt.Status),
			},
		})
	}

	for _, rec := range records {
		if rec.Content != nil && *rec.Content != "" {
			events = append(events, model.TimelineEvent{
				ID:          "rec-" + rec.ID.String(),
				Type:        model.EventClinicalNote,
				Date:        rec.CreatedAt,
				Title:       "Clinical Note Added",
				Description: snippet(*rec.Content, 100),
				Status:      rec.Status,
				ReferenceID: rec.ID,
				Metadata: model.ClinicalNoteMetadata{
					FullContent: *rec.Content,
					DoctorID:    rec.DoctorID,
				},
			})
		}
		if rec.FileURL != nil && *rec.FileURL != "" {
			events = append(events, model.TimelineEvent{
				ID:          "file-" + rec.ID.String(),
				Type:        model.EventFileUpload,
				Date:        rec.CreatedAt,
				Title:       "File Uploaded",
				Description: deref(rec.FileName),
				ReferenceID: rec.ID,
				Metadata: model.FileUploadMetadata{
					FileURL:  *rec.FileURL,
					FileName: deref(rec.FileName),
				},
			})
		}
	}

	for _, ver := range versions {
		events = append(events, model.TimelineEvent{
			ID:          "ver-" + ver.ID.String(),
			Type:        model.EventRecordUpdate,
			Date:        ver.CreatedAt,
			Title:       "Records Updated",
			Description: snippet(deref(ver.Content), 50),
			ReferenceID: ver.ID,
			Metadata: model.RecordUpdateMetadata{
				ContentSnippet: snippet(deref(ver.Content), 50),
			},
		})
	}

	return events
}

func applyFilter(events []model.TimelineEvent, filter model.TimelineFilter) []model.TimelineEvent {
	var typeSet map[model.TimelineEventType]bool
	if len(filter.Types) > 0 {
		typeSet = make(map[model.TimelineEventType]bool, len(filter.Types))
		for _, t := range filter.Types {
			typeSet[t] = true
		}
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	filtered := make([]model.TimelineEvent, 0, len(events))
	for _, event := range events {
		if typeSet != nil && !typeSet[event.Type] {
			continue
		}
		if filter.StartDate != nil && event.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && event.Date.After(*filter.EndDate) {
			continue
		}
		if search != "" && !matchesSearch(event, search) {
			continue
		}
		filtered = append(filtered, event)
	}
	return filtered
}

// matchesSearch checks the title, description, full note text and doctor
// display name, case-insensitively.
func matchesSearch(event model.TimelineEvent, search string) bool {
	if strings.Contains(strings.ToLower(event.Title), search) ||
		strings.Contains(strings.ToLower(event.Description), search) {
		return true
	}
	switch meta := event.Metadata.(type) {
	case model.ClinicalNoteMetadata:
		return strings.Contains(strings.ToLower(meta.FullContent), search)
	case model.AppointmentMetadata:
		return strings.Contains(strings.ToLower(meta.DoctorName), search)
	}
	return false
}

// groupThreads chains filtered appointment events by previousAppointmentId
// and wraps every other event in a singleton thread. The adjacency map is
// built over the filtered set only, so a parent removed by filtering makes
// its children local roots, mirroring the lineage forest semantics.
func groupThreads(events []model.TimelineEvent) []model.TimelineThread {
	byRef := make(map[uuid.UUID]model.TimelineEvent)
	children := make(map[uuid.UUID][]model.TimelineEvent)
	var others []model.TimelineEvent

	for _, event := range events {
		if event.Type != model.EventAppointment {
			others = append(others, event)
			continue
		}
		byRef[event.ReferenceID] = event
	}
	for _, event := range byRef {
		if event.PreviousAppointmentID != nil {
			if _, ok := byRef[*event.PreviousAppointmentID]; ok && *event.PreviousAppointmentID != event.ReferenceID {
				children[*event.PreviousAppointmentID] = append(children[*event.PreviousAppointmentID], event)
				continue
			}
		}
	}

	isChild := make(map[uuid.UUID]bool)
	for _, kids := range children {
		for _, kid := range kids {
			isChild[kid.ReferenceID] = true
		}
	}

	threads := make([]model.TimelineThread, 0, len(byRef)+len(others))
	visited := make(map[uuid.UUID]bool)

	// Breadth-first walk of a chain; the visited set stops the walk if
	// corrupt data ever forms a cycle.
	collectChain := func(root model.TimelineEvent) model.TimelineThread {
		var chain []model.TimelineEvent
		queue := []model.TimelineEvent{root}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			if visited[current.ReferenceID] {
				continue
			}
			visited[current.ReferenceID] = true
			chain = append(chain, current)
			queue = append(queue, children[current.ReferenceID]...)
		}

		sort.SliceStable(chain, func(i, j int) bool {
			return chain[i].Date.Before(chain[j].Date)
		})
		return model.TimelineThread{
			ID:         chain[0].ID,
			LatestDate: chain[len(chain)-1].Date,
			Events:     chain,
		}
	}

	for _, root := range byRef {
		if isChild[root.ReferenceID] || visited[root.ReferenceID] {
			continue
		}
		threads = append(threads, collectChain(root))
	}

	// A previousAppointmentId cycle marks every member as a child, so the
	// pass above never reaches them. Start a thread at each leftover to
	// keep every filtered event in exactly one thread.
	for _, event := range byRef {
		if visited[event.ReferenceID] {
			continue
		}
		threads = append(threads, collectChain(event))
	}

	for _, event := range others {
		threads = append(threads, model.TimelineThread{
			ID:         event.ID,
			LatestDate: event.Date,
			Events:     []model.TimelineEvent{event},
		})
	}

	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].LatestDate.After(threads[j].LatestDate)
	})
	return threads
}

// appointmentDate combines the date and start-time columns into a single
// timestamp for ordering. A malformed value sorts at the zero time rather
// than failing the whole timeline.
func appointmentDate(apt *model.Appointment) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", fmt.Sprintf("%s %s", apt.AppointmentDate, apt.StartTime))
	if err != nil {
		return time.Time{}
	}
	return t
}

func snippet(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
