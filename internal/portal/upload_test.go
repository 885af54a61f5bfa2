package portal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"timetabledocs/internal/client"
	"timetabledocs/internal/config"
	"timetabledocs/internal/model"
	"timetabledocs/internal/portal/mocks"
)

func pdfFile() *File {
	return &File{Name: "timetable.pdf", Size: 8, ContentType: PDFContentType, Content: strings.NewReader("%PDF-1.7")}
}

func TestUploadForm_NoFileSelected(t *testing.T) {
	up := new(mocks.MockUploader)
	form := NewUploadForm(up, DepartmentPolicy{})
	form.Note = "keep me"

	msg, err := form.Submit(context.Background())

	assert.ErrorIs(t, err, ErrNoFileSelected)
	assert.Empty(t, msg)
	assert.Equal(t, NoFileSelectedMessage, Message(err))
	assert.Equal(t, "keep me", form.Note)
	up.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestUploadForm_Success(t *testing.T) {
	up := new(mocks.MockUploader)
	form := NewUploadForm(up, DepartmentPolicy{Source: config.DepartmentFromConstant})
	form.File = pdfFile()
	form.Note = "Fall 2025 Draft 1"

	up.On("Upload", mock.Anything, mock.MatchedBy(func(in client.UploadRequest) bool {
		return in.Filename == "timetable.pdf" && in.Note == "Fall 2025 Draft 1" && in.Department == "default"
	})).Return(&model.UploadResult{Status: "success", URL: "https://cdn.test/timetable.pdf"}, nil).Once()

	msg, err := form.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "PDF uploaded successfully! URL: https://cdn.test/timetable.pdf", msg)
	assert.Nil(t, form.File)
	assert.Empty(t, form.Note)
	up.AssertExpectations(t)
}

func TestUploadForm_FailureKeepsState(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"server rejection", &client.ServerError{Status: 400, Message: "Only PDF files are allowed"}, "Only PDF files are allowed"},
		{"transport failure", &client.TransportError{Message: client.UploadTransportMessage}, client.UploadTransportMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := new(mocks.MockUploader)
			form := NewUploadForm(up, DepartmentPolicy{})
			file := pdfFile()
			form.File = file
			form.Note = "draft"

			up.On("Upload", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			_, err := form.Submit(context.Background())

			require.Error(t, err)
			assert.Equal(t, tt.want, Message(err))
			assert.Same(t, file, form.File)
			assert.Equal(t, "draft", form.Note)
			up.AssertNumberOfCalls(t, "Upload", 1)
		})
	}
}

// flakyUploadServer fails the first upload with 500 and accepts later ones, recording the
// number of file bytes each attempt carried.
func flakyUploadServer(t *testing.T) (*httptest.Server, func() []int) {
	t.Helper()
	var (
		mu    sync.Mutex
		sizes []int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(f)

		mu.Lock()
		sizes = append(sizes, len(b))
		first := len(sizes) == 1
		mu.Unlock()

		if first {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"error":"temporary failure"}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"status":"success","id":"1","url":"https://cdn.test/timetable.pdf","filename":"timetable.pdf"}`)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []int {
		mu.Lock()
		defer mu.Unlock()
		return append([]int(nil), sizes...)
	}
}

func TestUploadForm_RetryResendsFullContent(t *testing.T) {
	const body = "%PDF-1.7 ok"

	readers := map[string]func() io.Reader{
		"seekable":    func() io.Reader { return strings.NewReader(body) },
		"stream only": func() io.Reader { return io.MultiReader(strings.NewReader(body)) },
	}
	for name, newReader := range readers {
		t.Run(name, func(t *testing.T) {
			srv, sizes := flakyUploadServer(t)
			form := NewUploadForm(client.New(srv.URL), DepartmentPolicy{})
			form.File = &File{Name: "timetable.pdf", Size: int64(len(body)), ContentType: PDFContentType, Content: newReader()}
			form.Note = "Fall 2025 Draft 1"

			_, err := form.Submit(context.Background())
			require.EqualError(t, err, "temporary failure")
			require.NotNil(t, form.File)

			msg, err := form.Submit(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "PDF uploaded successfully! URL: https://cdn.test/timetable.pdf", msg)
			assert.Equal(t, []int{len(body), len(body)}, sizes())
		})
	}
}

func TestUploadForm_DepartmentSource(t *testing.T) {
	t.Run("claim", func(t *testing.T) {
		up := new(mocks.MockUploader)
		form := NewUploadForm(up, DepartmentPolicy{Source: config.DepartmentFromClaim, Claim: "physics"})
		form.File = pdfFile()
		up.On("Upload", mock.Anything, mock.MatchedBy(func(in client.UploadRequest) bool {
			return in.Department == "physics"
		})).Return(&model.UploadResult{URL: "u"}, nil).Once()

		_, err := form.Submit(context.Background())
		require.NoError(t, err)
		up.AssertExpectations(t)
	})

	t.Run("user-selected without a choice", func(t *testing.T) {
		up := new(mocks.MockUploader)
		form := NewUploadForm(up, DepartmentPolicy{Source: config.DepartmentFromUserSelected})
		form.File = pdfFile()

		_, err := form.Submit(context.Background())

		assert.ErrorIs(t, err, ErrNoDepartmentSelected)
		up.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	})
}

func TestUploadForm_Hints(t *testing.T) {
	form := NewUploadForm(nil, DepartmentPolicy{})
	assert.Nil(t, form.Hints())

	form.File = pdfFile()
	assert.Empty(t, form.Hints())

	form.File = &File{Name: "notes.txt", ContentType: "text/plain", Size: SoftMaxUploadBytes + 1}
	assert.Equal(t, []string{"Only PDF files are allowed", "File is larger than 10MB"}, form.Hints())
}

func TestDepartmentPolicy_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		policy   DepartmentPolicy
		selected string
		want     string
		wantErr  error
	}{
		{"constant default", DepartmentPolicy{}, "", "default", nil},
		{"constant configured", DepartmentPolicy{Source: config.DepartmentFromConstant, Constant: "cs"}, "math", "cs", nil},
		{"claim", DepartmentPolicy{Source: config.DepartmentFromClaim, Claim: " ee "}, "", "ee", nil},
		{"claim missing", DepartmentPolicy{Source: config.DepartmentFromClaim}, "", "", ErrNoDepartmentClaim},
		{"user selected", DepartmentPolicy{Source: config.DepartmentFromUserSelected}, "math", "math", nil},
		{"user selected missing", DepartmentPolicy{Source: config.DepartmentFromUserSelected}, "", "", ErrNoDepartmentSelected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.policy.Resolve(tt.selected)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DepartmentPolicy{Source: "ldap"}.Resolve("")
	assert.Error(t, err)
}
