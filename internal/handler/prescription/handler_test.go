package prescription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/prescription-api/internal/model"
	apperrors "github.com/jwalitptl/prescription-api/pkg/errors"
)

type fakeService struct {
	createFn      func(ctx context.Context, req *model.PrescriptionRequest) (*model.PrescriptionResponse, error)
	getByIDFn     func(ctx context.Context, id int64) (*model.PrescriptionResponse, error)
	getByPatient  func(ctx context.Context, patientID int64) ([]*model.PrescriptionResponse, error)
	updateFn      func(ctx context.Context, id int64, req *model.PrescriptionRequest) (*model.PrescriptionResponse, error)
	deleteFn      func(ctx context.Context, id int64) error
	getByDoctorFn func(ctx context.Context, doctorName string) ([]*model.PrescriptionResponse, error)
	getByRangeFn  func(ctx context.Context, start, end model.Date) ([]*model.PrescriptionResponse, error)
}

func (s *fakeService) Create(ctx context.Context, req *model.PrescriptionRequest) (*model.PrescriptionResponse, error) {
	return s.createFn(ctx, req)
}

func (s *fakeService) GetByID(ctx context.Context, id int64) (*model.PrescriptionResponse, error) {
	return s.getByIDFn(ctx, id)
}

func (s *fakeService) GetByPatientID(ctx context.Context, patientID int64) ([]*model.PrescriptionResponse, error) {
	return s.getByPatient(ctx, patientID)
}

func (s *fakeService) Update(ctx context.Context, id int64, req *model.PrescriptionRequest) (*model.PrescriptionResponse, error) {
	return s.updateFn(ctx, id, req)
}

func (s *fakeService) Delete(ctx context.Context, id int64) error {
	return s.deleteFn(ctx, id)
}

func (s *fakeService) GetByDoctorName(ctx context.Context, doctorName string) ([]*model.PrescriptionResponse, error) {
	return s.getByDoctorFn(ctx, doctorName)
}

func (s *fakeService) GetByDateRange(ctx context.Context, start, end model.Date) ([]*model.PrescriptionResponse, error) {
	return s.getByRangeFn(ctx, start, end)
}

var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func setupRouter(svc *fakeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(svc, func() time.Time { return fixedNow })
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func perform(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleResponse() *model.PrescriptionResponse {
	return &model.PrescriptionResponse{
		ID:         1,
		PatientID:  1,
		DoctorName: "Dr. Aiym",
		Medication: "Amoxicillin",
		Dosage:     "500mg twice daily",
		IssueDate:  model.NewDate(2025, time.March, 10),
		ValidUntil: model.NewDate(2025, time.April, 9),
	}
}

const validBody = `{
	"patientId": 1,
	"doctorName": "Dr. Aiym",
	"medication": "Amoxicillin",
	"dosage": "500mg twice daily",
	"issueDate": "2025-03-10",
	"validUntil": "2025-04-09"
}`

func TestCreatePrescription(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := &fakeService{
			createFn: func(_ context.Context, req *model.PrescriptionRequest) (*model.PrescriptionResponse, error) {
				assert.Equal(t, int64(1), req.PatientID)
				assert.Equal(t, "Dr. Aiym", req.DoctorName)
				return sampleResponse(), nil
			},
		}
		w := perform(setupRouter(svc), http.MethodPost, "/api/v1/prescriptions", validBody)

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp struct {
			Status string                     `json:"status"`
			Data   model.PrescriptionResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, int64(1), resp.Data.ID)
		assert.False(t, resp.Data.Expired)
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := &fakeService{}
		w := perform(setupRouter(svc), http.MethodPost, "/api/v1/prescriptions", `{"patientId":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing required fields", func(t *testing.T) {
		svc := &fakeService{}
		w := perform(setupRouter(svc), http.MethodPost, "/api/v1/prescriptions", `{"patientId":1}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("blank doctor name", func(t *testing.T) {
		svc := &fakeService{}
		body := strings.Replace(validBody, "Dr. Aiym", "   ", 1)
		w := perform(setupRouter(svc), http.MethodPost, "/api/v1/prescriptions", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("doctor name over limit", func(t *testing.T) {
		svc := &fakeService{}
		body := strings.Replace(validBody, "Dr. Aiym", strings.Repeat("a", 101), 1)
		w := perform(setupRouter(svc), http.MethodPost, "/api/v1/prescriptions", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing issue date", func(t *testing.T) {
		svc := &fakeService{}
		body := strings.Replace(validBody, `"issueDate": "2025-03-10",`, "", 1)
		w := perform(setupRouter(svc), http.MethodPost, "/api/v1/prescriptions", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Issue date is required")
	})

	t.Run("missing valid until", func(t *testing.T) {
		svc := &fakeService{}
		body := strings.Replace(validBody, `"validUntil": "2025-04-09"`, `"validUntil": null`, 1)
		w := perform(setupRouter(svc), http.MethodPost, "/api/v1/prescriptions", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Valid until date is required")
	})

	t.Run("issue date in the future", func(t *testing.T) {
		svc := &fakeService{}
		body := strings.Replace(validBody, `"issueDate": "2025-03-10"`, `"issueDate": "2025-03-11"`, 1)
		w := perform(setupRouter(svc), http.MethodPost, "/api/v1/prescriptions", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Issue date cannot be in the future")
	})

	t.Run("issue date today is accepted", func(t *testing.T) {
		svc := &fakeService{
			createFn: func(context.Context, *model.PrescriptionRequest) (*model.PrescriptionResponse, error) {
				return sampleResponse(), nil
			},
		}
		w := perform(setupRouter(svc), http.MethodPost, "/api/v1/prescriptions", validBody)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("unknown patient maps to 404", func(t *testing.T) {
		svc := &fakeService{
			createFn: func(context.Context, *model.PrescriptionRequest) (*model.PrescriptionResponse, error) {
				return nil, apperrors.NotFound("patient", 99)
			},
		}
		body := strings.Replace(validBody, `"patientId": 1`, `"patientId": 99`, 1)
		w := perform(setupRouter(svc), http.MethodPost, "/api/v1/prescriptions", body)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "patient not found with id: 99")
	})

	t.Run("validation error maps to 400", func(t *testing.T) {
		svc := &fakeService{
			createFn: func(context.Context, *model.PrescriptionRequest) (*model.PrescriptionResponse, error) {
				return nil, apperrors.Validation("Valid until date 2025-03-09 cannot be before issue date 2025-03-10")
			},
		}
		w := perform(setupRouter(svc), http.MethodPost, "/api/v1/prescriptions", validBody)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "cannot be before issue date")
	})
}

func TestGetPrescription(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := &fakeService{
			getByIDFn: func(_ context.Context, id int64) (*model.PrescriptionResponse, error) {
				assert.Equal(t, int64(1), id)
				return sampleResponse(), nil
			},
		}
		w := perform(setupRouter(svc), http.MethodGet, "/api/v1/prescriptions/1", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"issueDate":"2025-03-10"`)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &fakeService{
			getByIDFn: func(_ context.Context, id int64) (*model.PrescriptionResponse, error) {
				return nil, apperrors.NotFound("prescription", id)
			},
		}
		w := perform(setupRouter(svc), http.MethodGet, "/api/v1/prescriptions/42", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "prescription not found with id: 42")
	})

	t.Run("non-numeric id", func(t *testing.T) {
		svc := &fakeService{}
		w := perform(setupRouter(svc), http.MethodGet, "/api/v1/prescriptions/abc", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetPrescriptionsByPatient(t *testing.T) {
	t.Run("empty list stays a list", func(t *testing.T) {
		svc := &fakeService{
			getByPatient: func(_ context.Context, patientID int64) ([]*model.PrescriptionResponse, error) {
				assert.Equal(t, int64(7), patientID)
				return []*model.PrescriptionResponse{}, nil
			},
		}
		w := perform(setupRouter(svc), http.MethodGet, "/api/v1/prescriptions/patient/7", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"data":[]`)
	})
}

func TestUpdatePrescription(t *testing.T) {
	t.Run("updated", func(t *testing.T) {
		svc := &fakeService{
			updateFn: func(_ context.Context, id int64, req *model.PrescriptionRequest) (*model.PrescriptionResponse, error) {
				assert.Equal(t, int64(1), id)
				assert.Equal(t, "Amoxicillin", req.Medication)
				return sampleResponse(), nil
			},
		}
		w := perform(setupRouter(svc), http.MethodPut, "/api/v1/prescriptions/1", validBody)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &fakeService{
			updateFn: func(_ context.Context, id int64, _ *model.PrescriptionRequest) (*model.PrescriptionResponse, error) {
				return nil, apperrors.NotFound("prescription", id)
			},
		}
		w := perform(setupRouter(svc), http.MethodPut, "/api/v1/prescriptions/42", validBody)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid body skips the service", func(t *testing.T) {
		svc := &fakeService{}
		w := perform(setupRouter(svc), http.MethodPut, "/api/v1/prescriptions/1", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDeletePrescription(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		svc := &fakeService{
			deleteFn: func(_ context.Context, id int64) error {
				assert.Equal(t, int64(1), id)
				return nil
			},
		}
		w := perform(setupRouter(svc), http.MethodDelete, "/api/v1/prescriptions/1", "")

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		svc := &fakeService{
			deleteFn: func(_ context.Context, id int64) error {
				return apperrors.NotFound("prescription", id)
			},
		}
		w := perform(setupRouter(svc), http.MethodDelete, "/api/v1/prescriptions/42", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestGetPrescriptionsByDoctor(t *testing.T) {
	t.Run("matches", func(t *testing.T) {
		svc := &fakeService{
			getByDoctorFn: func(_ context.Context, doctorName string) ([]*model.PrescriptionResponse, error) {
				assert.Equal(t, "Dr. Aiym", doctorName)
				return []*model.PrescriptionResponse{sampleResponse()}, nil
			},
		}
		w := perform(setupRouter(svc), http.MethodGet, "/api/v1/prescriptions/filter/doctor?doctorName=Dr.+Aiym", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Dr. Aiym")
	})

	t.Run("missing parameter", func(t *testing.T) {
		svc := &fakeService{}
		w := perform(setupRouter(svc), http.MethodGet, "/api/v1/prescriptions/filter/doctor", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "doctorName is required")
	})
}

func TestGetPrescriptionsByDateRange(t *testing.T) {
	t.Run("matches", func(t *testing.T) {
		svc := &fakeService{
			getByRangeFn: func(_ context.Context, start, end model.Date) ([]*model.PrescriptionResponse, error) {
				assert.Equal(t, "2025-03-01", start.String())
				assert.Equal(t, "2025-03-31", end.String())
				return []*model.PrescriptionResponse{sampleResponse()}, nil
			},
		}
		w := perform(setupRouter(svc), http.MethodGet,
			"/api/v1/prescriptions/filter/date-range?startDate=2025-03-01&endDate=2025-03-31", "")

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unparseable start date", func(t *testing.T) {
		svc := &fakeService{}
		w := perform(setupRouter(svc), http.MethodGet,
			"/api/v1/prescriptions/filter/date-range?startDate=03-01-2025&endDate=2025-03-31", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "startDate must be a valid date")
	})

	t.Run("inverted range maps to 400", func(t *testing.T) {
		svc := &fakeService{
			getByRangeFn: func(context.Context, model.Date, model.Date) ([]*model.PrescriptionResponse, error) {
				return nil, apperrors.Validation("Start date must be before or equal to end date")
			},
		}
		w := perform(setupRouter(svc), http.MethodGet,
			"/api/v1/prescriptions/filter/date-range?startDate=2025-03-31&endDate=2025-03-01", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Start date must be before or equal to end date")
	})
}
