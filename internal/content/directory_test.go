package content_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/LearnShelfLab/analytics_svc/internal/content"
	"github.com/LearnShelfLab/analytics_svc/internal/model"
	"github.com/LearnShelfLab/analytics_svc/internal/testutil"
)

func seedHierarchy(t *testing.T, database *gorm.DB) {
	t.Helper()
	require.NoError(t, database.Create(&model.Standard{ID: "std-1", Name: "Class 10"}).Error)
	require.NoError(t, database.Create(&model.Subject{ID: "sub-1", StandardID: "std-1", Name: "Mathematics"}).Error)
	require.NoError(t, database.Create(&model.Chapter{ID: "ch-1", SubjectID: "sub-1", Name: "Trigonometry"}).Error)
}

func TestDirectoryLookupsResolveParentNames(t *testing.T) {
	database := testutil.OpenSQLiteTestDatabase(t)
	seedHierarchy(t, database)
	directory := content.NewDatabaseDirectory(database)

	standard, found, err := directory.LookupStandard(context.Background(), "std-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Class 10", standard.Name)

	subject, found, err := directory.LookupSubject(context.Background(), "sub-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Mathematics", subject.Name)
	require.Equal(t, "Class 10", subject.StandardName)

	chapter, found, err := directory.LookupChapter(context.Background(), "ch-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Trigonometry", chapter.Name)
	require.Equal(t, "Mathematics", chapter.SubjectName)
	require.Equal(t, "Class 10", chapter.StandardName)
}

func TestDirectoryLookupMissReportsNotFound(t *testing.T) {
	database := testutil.OpenSQLiteTestDatabase(t)
	directory := content.NewDatabaseDirectory(database)

	_, found, err := directory.LookupStandard(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = directory.LookupChapter(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDirectoryListingsResolveParentNames(t *testing.T) {
	database := testutil.OpenSQLiteTestDatabase(t)
	seedHierarchy(t, database)
	require.NoError(t, database.Create(&model.Chapter{ID: "ch-orphan", SubjectID: "gone", Name: "Orphan"}).Error)
	directory := content.NewDatabaseDirectory(database)

	standards, err := directory.ListStandards(context.Background())
	require.NoError(t, err)
	require.Len(t, standards, 1)

	subjects, err := directory.ListSubjects(context.Background())
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	require.Equal(t, "Class 10", subjects[0].StandardName)

	chapters, err := directory.ListChapters(context.Background())
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	chaptersByID := map[string]content.ChapterRef{}
	for _, chapter := range chapters {
		chaptersByID[chapter.ID] = chapter
	}
	require.Equal(t, "Mathematics", chaptersByID["ch-1"].SubjectName)
	require.Empty(t, chaptersByID["ch-orphan"].SubjectName)
}
