package application

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/backend"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/config"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/errors"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/logger"
)

// ==========================
// Fake Connection Checker
// ==========================

type fakeChecker struct {
	connections map[string]*backend.Connection
	err         error
	calls       int
}

func (f *fakeChecker) GetConnectionByName(_ context.Context, name string) (*backend.Connection, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if conn, ok := f.connections[name]; ok {
		return conn, nil
	}
	return nil, errors.NewNotFound("connection")
}

// ==========================
// Test Helpers
// ==========================

func testValidationConfig() config.ValidationConfig {
	return config.ValidationConfig{
		MaxAnswerLength: 500,
		MinAnswerLength: 10,
		MinAge:          13,
		MaxAge:          100,
		MaxErrors:       8,
		Image: config.ImageConfig{
			MinCount:     1,
			MaxCount:     5,
			MaxBytes:     8 << 20,
			AllowedTypes: []string{"image/png", "image/jpeg", "image/webp"},
		},
	}
}

func newTestValidator(t *testing.T, checker ConnectionChecker) *Validator {
	t.Helper()
	return NewValidator(testValidationConfig(), checker, logger.NewTestLogger(t))
}

func validPersonal() PersonalInput {
	return PersonalInput{
		Name:          "Alex Doe",
		Age:           21,
		MinecraftName: "AlexBuilds",
		Timezone:      "Europe/Berlin",
	}
}

func validAbout() AboutInput {
	return AboutInput{
		AboutYou:   "I enjoy large medieval builds and redstone contraptions.",
		WhyJoin:    "Friends recommended the community and the creative plots.",
		Experience: "Three years across several survival multiplayer servers.",
	}
}

func validImages() []Image {
	return []Image{
		{Name: "castle.png", URL: "https://cdn.example/castle.png", ContentType: "image/png", Size: 1 << 20},
		{Name: "farm.jpg", URL: "https://cdn.example/farm.jpg", ContentType: "image/jpeg", Size: 2 << 20},
	}
}

// ==========================
// Personal Section Tests
// ==========================

func TestSubmitPersonal_Valid(t *testing.T) {
	checker := &fakeChecker{}
	v := newTestValidator(t, checker)
	f := NewForm("owner-1")

	err := v.SubmitPersonal(context.Background(), f, validPersonal())
	require.NoError(t, err)

	assert.True(t, f.Completed[SectionPersonal])
	assert.Equal(t, "AlexBuilds", f.MinecraftName)
	assert.Equal(t, "Alex Doe", f.Answers["name"])
	assert.Equal(t, "21", f.Answers["age"])
	assert.Equal(t, 1, checker.calls)
}

func TestSubmitPersonal_FieldValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PersonalInput)
		problem string
	}{
		{
			name:    "too young",
			mutate:  func(in *PersonalInput) { in.Age = 11 },
			problem: "age",
		},
		{
			name:    "name too short",
			mutate:  func(in *PersonalInput) { in.Name = "A" },
			problem: "name",
		},
		{
			name:    "minecraft name with spaces",
			mutate:  func(in *PersonalInput) { in.MinecraftName = "not a name" },
			problem: "minecraftName",
		},
		{
			name:    "minecraft name too long",
			mutate:  func(in *PersonalInput) { in.MinecraftName = strings.Repeat("a", 17) },
			problem: "minecraftName",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &fakeChecker{}
			v := newTestValidator(t, checker)
			f := NewForm("owner-1")

			in := validPersonal()
			tt.mutate(&in)

			err := v.SubmitPersonal(context.Background(), f, in)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.False(t, f.Completed[SectionPersonal])
			assert.Equal(t, 0, checker.calls, "schema failure must not hit the backend")

			stdErr := errors.AsStandard(err)
			require.NotEmpty(t, stdErr.Problems)
			assert.Contains(t, stdErr.Problems[0], tt.problem)
		})
	}
}

func TestSubmitPersonal_NameLinkedToOtherOwner(t *testing.T) {
	checker := &fakeChecker{connections: map[string]*backend.Connection{
		"AlexBuilds": {ID: "c1", OwnerID: "someone-else", MinecraftName: "AlexBuilds"},
	}}
	v := newTestValidator(t, checker)
	f := NewForm("owner-1")

	err := v.SubmitPersonal(context.Background(), f, validPersonal())
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.False(t, f.Completed[SectionPersonal])
}

func TestSubmitPersonal_NameLinkedToSameOwner(t *testing.T) {
	checker := &fakeChecker{connections: map[string]*backend.Connection{
		"AlexBuilds": {ID: "c1", OwnerID: "owner-1", MinecraftName: "AlexBuilds", MinecraftUUID: "uuid-42"},
	}}
	v := newTestValidator(t, checker)
	f := NewForm("owner-1")

	err := v.SubmitPersonal(context.Background(), f, validPersonal())
	require.NoError(t, err)
	assert.True(t, f.Completed[SectionPersonal])
	assert.Equal(t, "uuid-42", f.MinecraftUUID)
}

func TestSubmitPersonal_BackendFailureResetsCompletion(t *testing.T) {
	checker := &fakeChecker{}
	v := newTestValidator(t, checker)
	f := NewForm("owner-1")

	// Pass once, then fail the revalidation round-trip.
	require.NoError(t, v.SubmitPersonal(context.Background(), f, validPersonal()))
	require.True(t, f.Completed[SectionPersonal])

	checker.err = errors.NewUpstreamFailure("get-connection", nil)
	err := v.SubmitPersonal(context.Background(), f, validPersonal())
	require.Error(t, err)
	assert.True(t, errors.IsUpstream(err))
	assert.False(t, f.Completed[SectionPersonal], "a failed revalidation resets the section")
}

// ==========================
// About Section Tests
// ==========================

func TestSubmitAbout_Valid(t *testing.T) {
	v := newTestValidator(t, &fakeChecker{})
	f := NewForm("owner-1")

	require.NoError(t, v.SubmitAbout(context.Background(), f, validAbout()))
	assert.True(t, f.Completed[SectionAbout])
	assert.NotEmpty(t, f.Answers["about_you"])
}

func TestSubmitAbout_AnswerTooShort(t *testing.T) {
	v := newTestValidator(t, &fakeChecker{})
	f := NewForm("owner-1")
	f.Completed[SectionAbout] = true

	in := validAbout()
	in.WhyJoin = "because"

	err := v.SubmitAbout(context.Background(), f, in)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.False(t, f.Completed[SectionAbout], "previously complete section resets on failure")
}

// ==========================
// Builds Section Tests
// ==========================

func TestSubmitBuilds_Valid(t *testing.T) {
	v := newTestValidator(t, &fakeChecker{})
	f := NewForm("owner-1")

	err := v.SubmitBuilds(context.Background(), f, BuildsInput{
		Note:   "Two highlights from the last season.",
		Images: validImages(),
	})
	require.NoError(t, err)
	assert.True(t, f.Completed[SectionBuilds])
	assert.Len(t, f.Images, 2)
}

func TestSubmitBuilds_ImageConstraints(t *testing.T) {
	tests := []struct {
		name    string
		images  []Image
		problem string
	}{
		{
			name:    "no images",
			images:  nil,
			problem: "at least 1",
		},
		{
			name: "too many images",
			images: []Image{
				{Name: "1.png", URL: "u", ContentType: "image/png", Size: 1},
				{Name: "2.png", URL: "u", ContentType: "image/png", Size: 1},
				{Name: "3.png", URL: "u", ContentType: "image/png", Size: 1},
				{Name: "4.png", URL: "u", ContentType: "image/png", Size: 1},
				{Name: "5.png", URL: "u", ContentType: "image/png", Size: 1},
				{Name: "6.png", URL: "u", ContentType: "image/png", Size: 1},
			},
			problem: "at most 5",
		},
		{
			name: "disallowed type",
			images: []Image{
				{Name: "clip.mp4", URL: "u", ContentType: "video/mp4", Size: 1},
			},
			problem: "file type video/mp4 not allowed",
		},
		{
			name: "oversized file",
			images: []Image{
				{Name: "huge.png", URL: "u", ContentType: "image/png", Size: 9 << 20},
			},
			problem: "byte limit",
		},
		{
			name: "missing upload location",
			images: []Image{
				{Name: "lost.png", URL: "", ContentType: "image/png", Size: 1},
			},
			problem: "upload location missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestValidator(t, &fakeChecker{})
			f := NewForm("owner-1")

			err := v.SubmitBuilds(context.Background(), f, BuildsInput{Images: tt.images})
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.False(t, f.Completed[SectionBuilds])

			stdErr := errors.AsStandard(err)
			found := false
			for _, p := range stdErr.Problems {
				if strings.Contains(p, tt.problem) {
					found = true
				}
			}
			assert.True(t, found, "expected a problem containing %q, got %v", tt.problem, stdErr.Problems)
		})
	}
}

func TestSubmitBuilds_ProblemListCapped(t *testing.T) {
	v := newTestValidator(t, &fakeChecker{})
	f := NewForm("owner-1")

	// Every image contributes three problems; the list must stay bounded.
	images := make([]Image, 5)
	for i := range images {
		images[i] = Image{Name: "bad.bmp", ContentType: "image/bmp", Size: 9 << 20}
	}

	err := v.SubmitBuilds(context.Background(), f, BuildsInput{Images: images})
	require.Error(t, err)

	stdErr := errors.AsStandard(err)
	assert.LessOrEqual(t, len(stdErr.Problems), testValidationConfig().MaxErrors)
}

// ==========================
// Community Section Tests
// ==========================

func TestSubmitCommunity(t *testing.T) {
	tests := []struct {
		name    string
		input   CommunityInput
		wantErr bool
	}{
		{
			name:  "rules accepted",
			input: CommunityInput{Referral: "a friend", RulesAccepted: true},
		},
		{
			name:  "no referral is fine",
			input: CommunityInput{RulesAccepted: true},
		},
		{
			name:    "rules not accepted",
			input:   CommunityInput{RulesAccepted: false},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestValidator(t, &fakeChecker{})
			f := NewForm("owner-1")

			err := v.SubmitCommunity(context.Background(), f, tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsValidation(err))
				assert.False(t, f.Completed[SectionCommunity])
				return
			}
			require.NoError(t, err)
			assert.True(t, f.Completed[SectionCommunity])
		})
	}
}

// ==========================
// Frozen Form Tests
// ==========================

func TestSubmit_FrozenAfterSubmission(t *testing.T) {
	v := newTestValidator(t, &fakeChecker{})
	f := NewForm("owner-1")
	f.Submitted = true

	assert.True(t, errors.IsConflict(v.SubmitPersonal(context.Background(), f, validPersonal())))
	assert.True(t, errors.IsConflict(v.SubmitAbout(context.Background(), f, validAbout())))
	assert.True(t, errors.IsConflict(v.SubmitBuilds(context.Background(), f, BuildsInput{Images: validImages()})))
	assert.True(t, errors.IsConflict(v.SubmitCommunity(context.Background(), f, CommunityInput{RulesAccepted: true})))
}
