package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/openjms/biometric-gateway/pkg/app/errors"
	"github.com/openjms/biometric-gateway/pkg/biometric"
	"github.com/openjms/biometric-gateway/pkg/bridge"
	"github.com/openjms/biometric-gateway/pkg/capture"
	"github.com/openjms/biometric-gateway/pkg/config"
	"github.com/openjms/biometric-gateway/pkg/enrollment"
	"github.com/openjms/biometric-gateway/pkg/keys"
	"github.com/openjms/biometric-gateway/pkg/subject"
	"github.com/openjms/biometric-gateway/pkg/subjectstore"
)

// mockSessionDevice fakes a scanner bridge with an init/release lifecycle.
type mockSessionDevice struct {
	modality      biometric.Modality
	policy        config.ReleasePolicy
	infoErr       error
	captureResult *bridge.CaptureResult
	captureErr    error
	infoCalls     int
	captureCalls  int
	releaseCalls  int
}

func (m *mockSessionDevice) Modality() biometric.Modality { return m.modality }

func (m *mockSessionDevice) Capture(_ context.Context, _ bridge.CaptureOptions) (*bridge.CaptureResult, error) {
	m.captureCalls++
	if m.captureErr != nil {
		return nil, m.captureErr
	}
	return m.captureResult, nil
}

func (m *mockSessionDevice) Info(_ context.Context) (*bridge.DeviceInfo, error) {
	m.infoCalls++
	if m.infoErr != nil {
		return nil, m.infoErr
	}
	return &bridge.DeviceInfo{Model: "mock scanner", Serial: "MOCK-1", Status: "ready"}, nil
}

func (m *mockSessionDevice) Release(_ context.Context) error {
	m.releaseCalls++
	return nil
}

func (m *mockSessionDevice) ReleasePolicy() config.ReleasePolicy { return m.policy }

// mockFaceDevice fakes the capture-only face service.
type mockFaceDevice struct {
	captureResult *bridge.CaptureResult
	captureErr    error
	captureCalls  int
}

func (m *mockFaceDevice) Modality() biometric.Modality { return biometric.ModalityFace }

func (m *mockFaceDevice) Capture(_ context.Context, _ bridge.CaptureOptions) (*bridge.CaptureResult, error) {
	m.captureCalls++
	if m.captureErr != nil {
		return nil, m.captureErr
	}
	return m.captureResult, nil
}

// mockSubmitter fakes the matching service.
type mockSubmitter struct {
	mu           sync.Mutex
	enrollReqs   []biometric.EnrollmentRequest
	enrollResult *biometric.EnrollmentResult
	enrollErr    error
	identifyReqs []biometric.IdentificationRequest
	identifyRes  *biometric.IdentificationResult
	identifyErr  error
}

func (m *mockSubmitter) Enroll(_ context.Context, req biometric.EnrollmentRequest) (*biometric.EnrollmentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollReqs = append(m.enrollReqs, req)
	if m.enrollErr != nil {
		return nil, m.enrollErr
	}
	return m.enrollResult, nil
}

func (m *mockSubmitter) Identify(_ context.Context, req biometric.IdentificationRequest) (*biometric.IdentificationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identifyReqs = append(m.identifyReqs, req)
	if m.identifyErr != nil {
		return nil, m.identifyErr
	}
	return m.identifyRes, nil
}

// mockPersonStore is a map-backed subject.Store.
type mockPersonStore struct {
	persons map[string]*subject.Person
}

func (m *mockPersonStore) Create(_ context.Context, p *subject.Person) error {
	m.persons[p.ID] = p
	return nil
}

func (m *mockPersonStore) Get(_ context.Context, id string) (*subject.Person, error) {
	p, ok := m.persons[id]
	if !ok {
		return nil, subjectstore.ErrPersonNotFound
	}
	return p, nil
}

func (m *mockPersonStore) List(_ context.Context, _ subject.Kind) ([]*subject.Person, error) {
	return nil, nil
}

func (m *mockPersonStore) Update(_ context.Context, _ *subject.Person) error { return nil }
func (m *mockPersonStore) Delete(_ context.Context, _ string) error          { return nil }

// mockEnrollmentStore records saved audit rows.
type mockEnrollmentStore struct {
	saved []*enrollment.Record
}

func (m *mockEnrollmentStore) Save(_ context.Context, r *enrollment.Record) error {
	m.saved = append(m.saved, r)
	return nil
}

func (m *mockEnrollmentStore) ListByPerson(_ context.Context, _ string) ([]*enrollment.Record, error) {
	return nil, nil
}

type fixture struct {
	svc         Service
	scanner     *mockSessionDevice
	face        *mockFaceDevice
	submitter   *mockSubmitter
	sessions    *capture.MemoryStore
	persons     *mockPersonStore
	enrollments *mockEnrollmentStore
	cipher      *keys.TemplateCipher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	masterKey, err := keys.GenerateMasterKey()
	require.NoError(t, err)
	cipher, err := keys.NewTemplateCipher(masterKey)
	require.NoError(t, err)

	scanner := &mockSessionDevice{
		modality: biometric.ModalityFingerprint,
		policy:   config.ReleaseAfterCapture,
		captureResult: &bridge.CaptureResult{
			Modality:     biometric.ModalityFingerprint,
			Template:     "abc123",
			Quality:      87,
			DeviceSerial: "MOCK-1",
			CapturedAt:   time.Now().UTC(),
		},
	}
	face := &mockFaceDevice{
		captureResult: &bridge.CaptureResult{
			Modality:   biometric.ModalityFace,
			Template:   "ZmFjZQ==",
			Quality:    91,
			CapturedAt: time.Now().UTC(),
		},
	}

	f := &fixture{
		scanner:   scanner,
		face:      face,
		submitter: &mockSubmitter{
			enrollResult: &biometric.EnrollmentResult{ReferenceID: "9001"},
			identifyRes:  &biometric.IdentificationResult{PersonID: "person-42", Score: 0.97},
		},
		sessions:    capture.NewMemoryStore(time.Minute),
		persons:     &mockPersonStore{persons: map[string]*subject.Person{}},
		enrollments: &mockEnrollmentStore{},
		cipher:      cipher,
	}
	f.svc = New(
		map[biometric.Modality]bridge.Device{
			biometric.ModalityFingerprint: scanner,
			biometric.ModalityFace:        face,
		},
		bridge.NewGuard(),
		f.submitter,
		f.sessions,
		f.persons,
		f.enrollments,
		cipher,
		zap.NewNop(),
	)
	return f
}

func (f *fixture) addPerson(id string) {
	f.persons.persons[id] = &subject.Person{ID: id, Kind: subject.KindPDL}
}

func TestCapture(t *testing.T) {
	f := newFixture(t)

	flow, err := f.svc.Capture(context.Background(), biometric.ModalityFingerprint, bridge.CaptureOptions{})
	require.NoError(t, err)

	assert.Equal(t, capture.StateCaptured, flow.State)
	assert.Equal(t, "abc123", flow.Template)
	assert.Equal(t, 87, flow.Quality)
	assert.Equal(t, "MOCK-1", flow.DeviceSerial)

	// Session lifecycle: probe, capture, then release per after_capture policy.
	assert.Equal(t, 1, f.scanner.infoCalls)
	assert.Equal(t, 1, f.scanner.captureCalls)
	assert.Equal(t, 1, f.scanner.releaseCalls)

	stored, err := f.sessions.Get(context.Background(), flow.ID)
	require.NoError(t, err)
	assert.Equal(t, capture.StateCaptured, stored.State)
}

func TestCaptureUnknownModality(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Capture(context.Background(), "voice", bridge.CaptureOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryDataError))
}

func TestCaptureDeviceUnavailable(t *testing.T) {
	f := newFixture(t)
	f.scanner.infoErr = apperrors.DeviceUnavailableError(nil, "fingerprint scanner is not responding")

	_, err := f.svc.Capture(context.Background(), biometric.ModalityFingerprint, bridge.CaptureOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryDeviceUnavailable))
	assert.Equal(t, 0, f.scanner.captureCalls)
}

func TestCaptureFailedDoesNotSubmit(t *testing.T) {
	f := newFixture(t)
	f.scanner.captureErr = apperrors.CaptureFailedError(nil, "no finger presented")

	_, err := f.svc.Capture(context.Background(), biometric.ModalityFingerprint, bridge.CaptureOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryCaptureFailed))
	assert.Empty(t, f.submitter.enrollReqs)
	assert.Empty(t, f.submitter.identifyReqs)
}

func TestCaptureFaceHasNoSessionCalls(t *testing.T) {
	f := newFixture(t)

	flow, err := f.svc.Capture(context.Background(), biometric.ModalityFace, bridge.CaptureOptions{})
	require.NoError(t, err)

	assert.Equal(t, capture.StateCaptured, flow.State)
	assert.Equal(t, 1, f.face.captureCalls)
	assert.Equal(t, 0, f.scanner.infoCalls)
}

func TestEnroll(t *testing.T) {
	f := newFixture(t)
	f.addPerson("person-1")

	flow, err := f.svc.Capture(context.Background(), biometric.ModalityFingerprint, bridge.CaptureOptions{})
	require.NoError(t, err)

	result, err := f.svc.Enroll(context.Background(), flow.ID, "person-1")
	require.NoError(t, err)
	assert.Equal(t, "9001", result.ReferenceID)

	// The modality tag travels from capture to enrollment unchanged.
	require.Len(t, f.submitter.enrollReqs, 1)
	sent := f.submitter.enrollReqs[0]
	assert.Equal(t, biometric.ModalityFingerprint, sent.Type)
	assert.Equal(t, "abc123", sent.Template)
	assert.Equal(t, "person-1", sent.PersonID)

	// The audit record holds the template sealed, never plaintext.
	require.Len(t, f.enrollments.saved, 1)
	record := f.enrollments.saved[0]
	assert.Equal(t, "person-1", record.PersonID)
	assert.Equal(t, "9001", record.ReferenceID)
	assert.NotEqual(t, "abc123", record.EncryptedTemplate)
	plaintext, err := f.cipher.Decrypt(biometric.ModalityFingerprint, record.EncryptedTemplate)
	require.NoError(t, err)
	assert.Equal(t, "abc123", string(plaintext))

	stored, err := f.sessions.Get(context.Background(), flow.ID)
	require.NoError(t, err)
	assert.Equal(t, capture.StateDone, stored.State)
}

func TestEnrollUnknownPerson(t *testing.T) {
	f := newFixture(t)

	flow, err := f.svc.Capture(context.Background(), biometric.ModalityFingerprint, bridge.CaptureOptions{})
	require.NoError(t, err)

	_, err = f.svc.Enroll(context.Background(), flow.ID, "nobody")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryResourceNotFound))
	assert.Empty(t, f.submitter.enrollReqs)
}

func TestEnrollRejectedUpstream(t *testing.T) {
	f := newFixture(t)
	f.addPerson("person-1")
	f.submitter.enrollErr = apperrors.EnrollmentFailedError(nil, "duplicate template")

	flow, err := f.svc.Capture(context.Background(), biometric.ModalityFingerprint, bridge.CaptureOptions{})
	require.NoError(t, err)

	_, err = f.svc.Enroll(context.Background(), flow.ID, "person-1")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryEnrollmentFailed))
	assert.Empty(t, f.enrollments.saved)

	stored, err := f.sessions.Get(context.Background(), flow.ID)
	require.NoError(t, err)
	assert.Equal(t, capture.StateFailed, stored.State)
}

func TestFlowSubmittedAtMostOnce(t *testing.T) {
	f := newFixture(t)
	f.addPerson("person-1")

	flow, err := f.svc.Capture(context.Background(), biometric.ModalityFingerprint, bridge.CaptureOptions{})
	require.NoError(t, err)

	_, err = f.svc.Enroll(context.Background(), flow.ID, "person-1")
	require.NoError(t, err)

	// The second submission, via either path, is rejected.
	_, err = f.svc.Enroll(context.Background(), flow.ID, "person-1")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryDataConflict))

	_, err = f.svc.Identify(context.Background(), flow.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryDataConflict))

	assert.Len(t, f.submitter.enrollReqs, 1)
	assert.Empty(t, f.submitter.identifyReqs)
}

func TestOverlappingSubmitsReachMatcherOnce(t *testing.T) {
	f := newFixture(t)
	f.addPerson("person-1")

	flow, err := f.svc.Capture(context.Background(), biometric.ModalityFingerprint, bridge.CaptureOptions{})
	require.NoError(t, err)

	// Two operators fire the submit at the same moment: one claims the flow,
	// the other must lose the claim before anything goes upstream.
	const submitters = 8
	var wg sync.WaitGroup
	errs := make([]error, submitters)

	wg.Add(submitters)
	for i := 0; i < submitters; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Enroll(context.Background(), flow.ID, "person-1")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.True(t, apperrors.Is(err, apperrors.CategoryDataConflict))
		}
	}
	assert.Equal(t, 1, wins)
	assert.Len(t, f.submitter.enrollReqs, 1)
}

func TestIdentify(t *testing.T) {
	f := newFixture(t)

	flow, err := f.svc.Capture(context.Background(), biometric.ModalityFace, bridge.CaptureOptions{})
	require.NoError(t, err)

	result, err := f.svc.Identify(context.Background(), flow.ID)
	require.NoError(t, err)
	assert.Equal(t, "person-42", result.PersonID)

	require.Len(t, f.submitter.identifyReqs, 1)
	assert.Equal(t, biometric.ModalityFace, f.submitter.identifyReqs[0].Type)
	assert.Equal(t, "ZmFjZQ==", f.submitter.identifyReqs[0].Template)
}

func TestIdentifyNoMatch(t *testing.T) {
	f := newFixture(t)
	f.submitter.identifyErr = apperrors.NoMatchError(nil, "no matching record found")

	flow, err := f.svc.Capture(context.Background(), biometric.ModalityFace, bridge.CaptureOptions{})
	require.NoError(t, err)

	_, err = f.svc.Identify(context.Background(), flow.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryNoMatch))
	assert.False(t, apperrors.Is(err, apperrors.CategoryDependencyFailure))

	stored, err := f.sessions.Get(context.Background(), flow.ID)
	require.NoError(t, err)
	assert.Equal(t, capture.StateFailed, stored.State)
}

func TestIdentifyUnknownFlow(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Identify(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryResourceNotFound))
}

func TestDevices(t *testing.T) {
	f := newFixture(t)

	statuses := f.svc.Devices(context.Background())
	require.Len(t, statuses, 2)

	byModality := map[biometric.Modality]DeviceStatus{}
	for _, s := range statuses {
		byModality[s.Modality] = s
	}

	fp := byModality[biometric.ModalityFingerprint]
	assert.True(t, fp.SessionManaged)
	assert.Equal(t, "ready", fp.Status)
	assert.Equal(t, "MOCK-1", fp.Serial)

	face := byModality[biometric.ModalityFace]
	assert.False(t, face.SessionManaged)
	assert.Equal(t, "ready", face.Status)
}

func TestDevicesReportsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.scanner.infoErr = apperrors.DeviceUnavailableError(nil, "fingerprint scanner is not responding")

	statuses := f.svc.Devices(context.Background())
	for _, s := range statuses {
		if s.Modality == biometric.ModalityFingerprint {
			assert.Equal(t, "unavailable", s.Status)
			assert.NotEmpty(t, s.Error)
		}
	}
}

func TestCloseReleasesOnClosePolicy(t *testing.T) {
	f := newFixture(t)
	f.scanner.policy = config.ReleaseOnClose

	flow, err := f.svc.Capture(context.Background(), biometric.ModalityFingerprint, bridge.CaptureOptions{})
	require.NoError(t, err)
	assert.Equal(t, capture.StateCaptured, flow.State)
	assert.Equal(t, 0, f.scanner.releaseCalls)

	require.NoError(t, f.svc.Close(context.Background()))
	assert.Equal(t, 1, f.scanner.releaseCalls)
}
