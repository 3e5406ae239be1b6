package content

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/LearnShelfLab/analytics_svc/internal/model"
)

// StandardRef names one standard.
type StandardRef struct {
	ID   string
	Name string
}

// SubjectRef names one subject together with its parent standard.
type SubjectRef struct {
	ID           string
	Name         string
	StandardName string
}

// ChapterRef names one chapter together with its subject and standard.
type ChapterRef struct {
	ID           string
	Name         string
	SubjectName  string
	StandardName string
}

// Directory is the read-only view of the content hierarchy consumed by the
// analytics rollups. The catalog back office owns the underlying tables.
type Directory interface {
	LookupStandard(ctx context.Context, id string) (StandardRef, bool, error)
	LookupSubject(ctx context.Context, id string) (SubjectRef, bool, error)
	LookupChapter(ctx context.Context, id string) (ChapterRef, bool, error)
	ListStandards(ctx context.Context) ([]StandardRef, error)
	ListSubjects(ctx context.Context) ([]SubjectRef, error)
	ListChapters(ctx context.Context) ([]ChapterRef, error)
}

// DatabaseDirectory implements Directory over the primary database.
type DatabaseDirectory struct {
	database *gorm.DB
}

// NewDatabaseDirectory builds a Directory backed by the primary database.
func NewDatabaseDirectory(database *gorm.DB) *DatabaseDirectory {
	return &DatabaseDirectory{database: database}
}

// LookupStandard resolves a standard by id. The second return is false when
// no such standard exists.
func (directory *DatabaseDirectory) LookupStandard(ctx context.Context, id string) (StandardRef, bool, error) {
	var standard model.Standard
	if err := directory.database.WithContext(ctx).First(&standard, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return StandardRef{}, false, nil
		}
		return StandardRef{}, false, fmt.Errorf("content: lookup standard: %w", err)
	}
	return StandardRef{ID: standard.ID, Name: standard.Name}, true, nil
}

// LookupSubject resolves a subject and its parent standard name by id.
func (directory *DatabaseDirectory) LookupSubject(ctx context.Context, id string) (SubjectRef, bool, error) {
	var subject model.Subject
	if err := directory.database.WithContext(ctx).First(&subject, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SubjectRef{}, false, nil
		}
		return SubjectRef{}, false, fmt.Errorf("content: lookup subject: %w", err)
	}
	reference := SubjectRef{ID: subject.ID, Name: subject.Name}
	standard, found, err := directory.LookupStandard(ctx, subject.StandardID)
	if err != nil {
		return SubjectRef{}, false, err
	}
	if found {
		reference.StandardName = standard.Name
	}
	return reference, true, nil
}

// LookupChapter resolves a chapter plus its subject and standard names by id.
func (directory *DatabaseDirectory) LookupChapter(ctx context.Context, id string) (ChapterRef, bool, error) {
	var chapter model.Chapter
	if err := directory.database.WithContext(ctx).First(&chapter, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ChapterRef{}, false, nil
		}
		return ChapterRef{}, false, fmt.Errorf("content: lookup chapter: %w", err)
	}
	reference := ChapterRef{ID: chapter.ID, Name: chapter.Name}
	subject, found, err := directory.LookupSubject(ctx, chapter.SubjectID)
	if err != nil {
		return ChapterRef{}, false, err
	}
	if found {
		reference.SubjectName = subject.Name
		reference.StandardName = subject.StandardName
	}
	return reference, true, nil
}

// ListStandards returns every known standard.
func (directory *DatabaseDirectory) ListStandards(ctx context.Context) ([]StandardRef, error) {
	var standards []model.Standard
	if err := directory.database.WithContext(ctx).Find(&standards).Error; err != nil {
		return nil, fmt.Errorf("content: list standards: %w", err)
	}
	references := make([]StandardRef, 0, len(standards))
	for _, standard := range standards {
		references = append(references, StandardRef{ID: standard.ID, Name: standard.Name})
	}
	return references, nil
}

// ListSubjects returns every known subject with parent standard names resolved.
func (directory *DatabaseDirectory) ListSubjects(ctx context.Context) ([]SubjectRef, error) {
	var subjects []model.Subject
	if err := directory.database.WithContext(ctx).Find(&subjects).Error; err != nil {
		return nil, fmt.Errorf("content: list subjects: %w", err)
	}
	standardNames, err := directory.standardNamesByID(ctx)
	if err != nil {
		return nil, err
	}
	references := make([]SubjectRef, 0, len(subjects))
	for _, subject := range subjects {
		references = append(references, SubjectRef{
			ID:           subject.ID,
			Name:         subject.Name,
			StandardName: standardNames[subject.StandardID],
		})
	}
	return references, nil
}

// ListChapters returns every known chapter with subject and standard names resolved.
func (directory *DatabaseDirectory) ListChapters(ctx context.Context) ([]ChapterRef, error) {
	var chapters []model.Chapter
	if err := directory.database.WithContext(ctx).Find(&chapters).Error; err != nil {
		return nil, fmt.Errorf("content: list chapters: %w", err)
	}
	subjects, err := directory.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	subjectsByID := make(map[string]SubjectRef, len(subjects))
	for _, subject := range subjects {
		subjectsByID[subject.ID] = subject
	}
	references := make([]ChapterRef, 0, len(chapters))
	for _, chapter := range chapters {
		subject := subjectsByID[chapter.SubjectID]
		references = append(references, ChapterRef{
			ID:           chapter.ID,
			Name:         chapter.Name,
			SubjectName:  subject.Name,
			StandardName: subject.StandardName,
		})
	}
	return references, nil
}

func (directory *DatabaseDirectory) standardNamesByID(ctx context.Context) (map[string]string, error) {
	standards, err := directory.ListStandards(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(standards))
	for _, standard := range standards {
		names[standard.ID] = standard.Name
	}
	return names, nil
}
