package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/khagendra-rk/lms/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndReturnRoundTrip(t *testing.T) {
	f := newFixture(t)
	svc := NewCirculationService(f.db)
	ctx := context.Background()
	idx := f.index(t, 1)

	borrow, err := svc.Issue(ctx, idx.ID, f.studentRef(), f.user.ID)
	require.NoError(t, err)
	assert.True(t, borrow.IsOpen())
	assert.Equal(t, f.user.ID, borrow.IssuedBy)

	var reloaded model.Index
	require.NoError(t, f.db.First(&reloaded, idx.ID).Error)
	assert.True(t, reloaded.IsBorrowed)
	assertFlagsConsistent(t, f.db)

	returned, err := svc.ReturnByBorrow(ctx, borrow.ID)
	require.NoError(t, err)
	assert.NotNil(t, returned.ReturnedAt)

	require.NoError(t, f.db.First(&reloaded, idx.ID).Error)
	assert.False(t, reloaded.IsBorrowed)

	var stored model.Borrow
	require.NoError(t, f.db.First(&stored, borrow.ID).Error)
	assert.NotNil(t, stored.ReturnedAt)
	assertFlagsConsistent(t, f.db)
}

func TestIssueRejectsBorrowedIndex(t *testing.T) {
	f := newFixture(t)
	svc := NewCirculationService(f.db)
	ctx := context.Background()
	idx := f.index(t, 1)

	_, err := svc.Issue(ctx, idx.ID, f.studentRef(), f.user.ID)
	require.NoError(t, err)

	_, err = svc.Issue(ctx, idx.ID, f.teacherRef(), f.user.ID)
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	var count int64
	f.db.Model(&model.Borrow{}).Count(&count)
	assert.Equal(t, int64(1), count)
	assertFlagsConsistent(t, f.db)
}

func TestIssueValidatesBorrower(t *testing.T) {
	f := newFixture(t)
	svc := NewCirculationService(f.db)
	idx := f.index(t, 1)

	sid, tid := f.student.ID, f.teacher.ID
	cases := map[string]BorrowerRef{
		"neither": {},
		"both":    {StudentID: &sid, TeacherID: &tid},
	}
	for name, ref := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Issue(context.Background(), idx.ID, ref, f.user.ID)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, "student_id")
			assert.Contains(t, verr.Fields, "teacher_id")
		})
	}

	var reloaded model.Index
	require.NoError(t, f.db.First(&reloaded, idx.ID).Error)
	assert.False(t, reloaded.IsBorrowed)
}

func TestIssueMissingReferences(t *testing.T) {
	f := newFixture(t)
	svc := NewCirculationService(f.db)
	idx := f.index(t, 1)

	_, err := svc.Issue(context.Background(), 9999, f.studentRef(), f.user.ID)
	assert.True(t, IsNotFound(err))

	missing := uint(9999)
	_, err = svc.Issue(context.Background(), idx.ID, BorrowerRef{StudentID: &missing}, f.user.ID)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "student_id", nf.Field)
}

func TestConcurrentIssueExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	svc := NewCirculationService(f.db)
	idx := f.index(t, 1)

	const attempts = 2
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	refs := []BorrowerRef{f.studentRef(), f.teacherRef()}

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Issue(context.Background(), idx.ID, refs[i], f.user.ID)
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	var open int64
	f.db.Model(&model.Borrow{}).Where("returned_at IS NULL").Count(&open)
	assert.Equal(t, int64(1), open)
	assertFlagsConsistent(t, f.db)
}

func TestReturnByBorrowRejectsDoubleReturn(t *testing.T) {
	f := newFixture(t)
	svc := NewCirculationService(f.db)
	ctx := context.Background()
	idx := f.index(t, 1)

	borrow, err := svc.Issue(ctx, idx.ID, f.studentRef(), f.user.ID)
	require.NoError(t, err)

	first, err := svc.ReturnByBorrow(ctx, borrow.ID)
	require.NoError(t, err)

	_, err = svc.ReturnByBorrow(ctx, borrow.ID)
	assert.True(t, IsConflict(err))

	var stored model.Borrow
	require.NoError(t, f.db.First(&stored, borrow.ID).Error)
	assert.WithinDuration(t, *first.ReturnedAt, *stored.ReturnedAt, 0)
}

func TestReturnByCode(t *testing.T) {
	f := newFixture(t)
	svc := NewCirculationService(f.db)
	ctx := context.Background()
	idx := f.index(t, 42)

	_, err := svc.Issue(ctx, idx.ID, f.studentRef(), f.user.ID)
	require.NoError(t, err)

	_, err = svc.ReturnByCode(ctx, "SCI42", "")
	assert.True(t, IsValidation(err))

	borrow, err := svc.ReturnByCode(ctx, "SCI-42", "")
	require.NoError(t, err)
	assert.Equal(t, idx.ID, borrow.IndexID)
	assert.NotNil(t, borrow.ReturnedAt)
	assertFlagsConsistent(t, f.db)

	_, err = svc.ReturnByCode(ctx, "SCI-42", "")
	assert.True(t, IsConflict(err))

	_, err = svc.ReturnByCode(ctx, "SCI-43", "")
	assert.True(t, IsNotFound(err))
}

func TestReturnByCodeWithExplicitPrefix(t *testing.T) {
	f := newFixture(t)
	svc := NewCirculationService(f.db)
	ctx := context.Background()
	idx := f.index(t, 7)

	_, err := svc.Issue(ctx, idx.ID, f.teacherRef(), f.user.ID)
	require.NoError(t, err)

	borrow, err := svc.ReturnByCode(ctx, "7", "SCI")
	require.NoError(t, err)
	assert.Equal(t, idx.ID, borrow.IndexID)
}

func TestReturnByCodeIgnoresPrefixCase(t *testing.T) {
	f := newFixture(t)
	svc := NewCirculationService(f.db)
	ctx := context.Background()
	a := f.index(t, 42)
	b := f.index(t, 43)

	_, err := svc.Issue(ctx, a.ID, f.studentRef(), f.user.ID)
	require.NoError(t, err)
	_, err = svc.Issue(ctx, b.ID, f.teacherRef(), f.user.ID)
	require.NoError(t, err)

	borrow, err := svc.ReturnByCode(ctx, "sci-42", "")
	require.NoError(t, err)
	assert.Equal(t, a.ID, borrow.IndexID)

	borrow, err = svc.ReturnByCode(ctx, "43", "Sci")
	require.NoError(t, err)
	assert.Equal(t, b.ID, borrow.IndexID)
	assertFlagsConsistent(t, f.db)
}

func TestParseIndexCode(t *testing.T) {
	tests := []struct {
		code       string
		prefix     string
		wantPrefix string
		wantNumber int
		wantErr    bool
	}{
		{code: "SCI-42", wantPrefix: "SCI", wantNumber: 42},
		{code: " MTH-7 ", wantPrefix: "MTH", wantNumber: 7},
		{code: "12", prefix: "ENG", wantPrefix: "ENG", wantNumber: 12},
		{code: "sci-42", wantPrefix: "SCI", wantNumber: 42},
		{code: "12", prefix: " eng ", wantPrefix: "ENG", wantNumber: 12},
		{code: "SCI42", wantErr: true},
		{code: "A-B-1", wantErr: true},
		{code: "-5", wantErr: true},
		{code: "SCI-x", wantErr: true},
		{code: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			prefix, number, err := ParseIndexCode(tt.code, tt.prefix)
			if tt.wantErr {
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrefix, prefix)
			assert.Equal(t, tt.wantNumber, number)
		})
	}
}

func TestReassignMovesBorrow(t *testing.T) {
	f := newFixture(t)
	svc := NewCirculationService(f.db)
	ctx := context.Background()
	oldIdx := f.index(t, 1)
	newIdx := f.index(t, 2)

	borrow, err := svc.Issue(ctx, oldIdx.ID, f.studentRef(), f.user.ID)
	require.NoError(t, err)

	updated, err := svc.Reassign(ctx, borrow.ID, newIdx.ID, f.teacherRef(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, newIdx.ID, updated.IndexID)
	assert.Nil(t, updated.StudentID)
	require.NotNil(t, updated.TeacherID)
	assert.Equal(t, f.teacher.ID, *updated.TeacherID)

	var o, n model.Index
	require.NoError(t, f.db.First(&o, oldIdx.ID).Error)
	require.NoError(t, f.db.First(&n, newIdx.ID).Error)
	assert.False(t, o.IsBorrowed)
	assert.True(t, n.IsBorrowed)
	assertFlagsConsistent(t, f.db)
}

func TestReassignRejectsBorrowedTargetAndReturnedBorrow(t *testing.T) {
	f := newFixture(t)
	svc := NewCirculationService(f.db)
	ctx := context.Background()
	a := f.index(t, 1)
	b := f.index(t, 2)

	first, err := svc.Issue(ctx, a.ID, f.studentRef(), f.user.ID)
	require.NoError(t, err)
	_, err = svc.Issue(ctx, b.ID, f.teacherRef(), f.user.ID)
	require.NoError(t, err)

	_, err = svc.Reassign(ctx, first.ID, b.ID, f.studentRef(), f.user.ID)
	assert.True(t, IsConflict(err))

	// same index keeps working
	_, err = svc.Reassign(ctx, first.ID, a.ID, f.teacherRef(), f.user.ID)
	require.NoError(t, err)

	_, err = svc.ReturnByBorrow(ctx, first.ID)
	require.NoError(t, err)
	_, err = svc.Reassign(ctx, first.ID, a.ID, f.studentRef(), f.user.ID)
	assert.True(t, IsConflict(err))
	assertFlagsConsistent(t, f.db)
}

func TestDeleteOpenBorrowFreesIndex(t *testing.T) {
	f := newFixture(t)
	svc := NewCirculationService(f.db)
	ctx := context.Background()
	idx := f.index(t, 1)

	borrow, err := svc.Issue(ctx, idx.ID, f.studentRef(), f.user.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, borrow.ID))

	var reloaded model.Index
	require.NoError(t, f.db.First(&reloaded, idx.ID).Error)
	assert.False(t, reloaded.IsBorrowed)

	assert.True(t, IsNotFound(svc.Delete(ctx, borrow.ID)))

	// the copy can circulate again
	_, err = svc.Issue(ctx, idx.ID, f.teacherRef(), f.user.ID)
	assert.NoError(t, err)
}

func TestDeleteAfterReassignFreesCurrentIndex(t *testing.T) {
	f := newFixture(t)
	svc := NewCirculationService(f.db)
	ctx := context.Background()
	oldIdx := f.index(t, 1)
	newIdx := f.index(t, 2)

	borrow, err := svc.Issue(ctx, oldIdx.ID, f.studentRef(), f.user.ID)
	require.NoError(t, err)
	_, err = svc.Reassign(ctx, borrow.ID, newIdx.ID, f.studentRef(), f.user.ID)
	require.NoError(t, err)

	// someone else takes the original copy before the delete runs
	other, err := svc.Issue(ctx, oldIdx.ID, f.teacherRef(), f.user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, borrow.ID))

	var o, n model.Index
	require.NoError(t, f.db.First(&o, oldIdx.ID).Error)
	require.NoError(t, f.db.First(&n, newIdx.ID).Error)
	assert.True(t, o.IsBorrowed)
	assert.False(t, n.IsBorrowed)
	assertFlagsConsistent(t, f.db)

	_, err = svc.ReturnByBorrow(ctx, other.ID)
	assert.NoError(t, err)
}

func TestDeleteReturnedBorrowLeavesIndexAlone(t *testing.T) {
	f := newFixture(t)
	svc := NewCirculationService(f.db)
	ctx := context.Background()
	idx := f.index(t, 1)

	first, err := svc.Issue(ctx, idx.ID, f.studentRef(), f.user.ID)
	require.NoError(t, err)
	_, err = svc.ReturnByBorrow(ctx, first.ID)
	require.NoError(t, err)
	_, err = svc.Issue(ctx, idx.ID, f.teacherRef(), f.user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, first.ID))

	var reloaded model.Index
	require.NoError(t, f.db.First(&reloaded, idx.ID).Error)
	assert.True(t, reloaded.IsBorrowed)
	assertFlagsConsistent(t, f.db)
}
