package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tarakiga/ccas/internal/dto"
	"github.com/tarakiga/ccas/internal/models"
	"github.com/tarakiga/ccas/internal/repository"
	appErrors "github.com/tarakiga/ccas/pkg/errors"
)

type shipmentStoreStub struct {
	shipments map[int64]*models.Shipment
	steps     map[int64][]models.WorkflowStep
	audits    []models.AuditRecord
	nextID    int64

	duplicateOn string
	conflict    bool
}

func newShipmentStoreStub() *shipmentStoreStub {
	return &shipmentStoreStub{
		shipments: make(map[int64]*models.Shipment),
		steps:     make(map[int64][]models.WorkflowStep),
		nextID:    1,
	}
}

func (s *shipmentStoreStub) CreateWithSteps(ctx context.Context, shipment *models.Shipment, steps []models.WorkflowStep, audits []models.AuditRecord) error {
	if shipment.ShipmentNumber == s.duplicateOn {
		return repository.ErrDuplicateKey
	}
	shipment.ID = s.nextID
	s.nextID++
	shipment.Version = 1
	copy := *shipment
	s.shipments[shipment.ID] = &copy
	s.steps[shipment.ID] = steps
	s.audits = append(s.audits, audits...)
	return nil
}

func (s *shipmentStoreStub) GetByID(ctx context.Context, id int64) (*models.Shipment, error) {
	if shipment, ok := s.shipments[id]; ok {
		copy := *shipment
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *shipmentStoreStub) UpdateVersioned(ctx context.Context, shipment *models.Shipment, expectedVersion int64, audits []models.AuditRecord) error {
	stored, ok := s.shipments[shipment.ID]
	if !ok || s.conflict || stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	copy := *shipment
	copy.Version = expectedVersion + 1
	s.shipments[shipment.ID] = &copy
	shipment.Version = copy.Version
	s.audits = append(s.audits, audits...)
	return nil
}

func (s *shipmentStoreStub) UpdateETA(ctx context.Context, id, expectedVersion int64, newETA time.Time, audits []models.AuditRecord) (*models.Shipment, error) {
	stored, ok := s.shipments[id]
	if !ok || s.conflict || stored.Version != expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	stored.ETA = newETA
	stored.ETAEditCount++
	stored.Version++
	s.audits = append(s.audits, audits...)
	copy := *stored
	return &copy, nil
}

func (s *shipmentStoreStub) SoftDelete(ctx context.Context, id int64, audit models.AuditRecord) (bool, error) {
	if _, ok := s.shipments[id]; !ok {
		return false, nil
	}
	delete(s.shipments, id)
	s.audits = append(s.audits, audit)
	return true, nil
}

func (s *shipmentStoreStub) List(ctx context.Context, filter models.ShipmentFilter) ([]models.Shipment, int, error) {
	var out []models.Shipment
	for _, shipment := range s.shipments {
		out = append(out, *shipment)
	}
	return out, len(out), nil
}

type generatorStub struct {
	calls int
	eta   time.Time
}

func (g *generatorStub) Generate(ctx context.Context, eta time.Time) ([]models.WorkflowStep, error) {
	g.calls++
	g.eta = eta
	return []models.WorkflowStep{
		{StepNumber: "9.0", StepName: "Bayan submission", TargetDate: eta, OffsetDays: 0, Status: models.StepStatusPending, IsCritical: true, PPRUserID: 5},
		{StepNumber: "10.0", StepName: "Customs duty payment", TargetDate: eta.AddDate(0, 0, 3), OffsetDays: 3, Status: models.StepStatusPending, IsCritical: true, PPRUserID: 6},
	}, nil
}

func createReq(number string) dto.CreateShipmentRequest {
	return dto.CreateShipmentRequest{
		ShipmentNumber: number,
		Principal:      "Acme Trading",
		Brand:          "Acme",
		LCNumber:       "LC-1001",
		InvoiceAmount:  models.Amount(10000000),
		ETA:            dto.NewDate(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)),
	}
}

func TestShipmentServiceCreateGeneratesSteps(t *testing.T) {
	store := newShipmentStoreStub()
	gen := &generatorStub{}
	svc := NewShipmentService(store, gen, nil, nil)

	shipment, steps, err := svc.Create(context.Background(), createReq("SHP-2026-0001"), 3)
	require.NoError(t, err)
	require.Equal(t, int64(1), shipment.ID)
	require.Equal(t, models.ShipmentStatusActive, shipment.Status)
	require.Len(t, steps, 2)
	require.Equal(t, 1, gen.calls)
	require.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), gen.eta)
	require.NotEmpty(t, store.audits)
}

func TestShipmentServiceCreateDuplicateNumber(t *testing.T) {
	store := newShipmentStoreStub()
	store.duplicateOn = "SHP-2026-0001"
	svc := NewShipmentService(store, &generatorStub{}, nil, nil)

	_, _, err := svc.Create(context.Background(), createReq("SHP-2026-0001"), 3)
	require.True(t, appErrors.Is(err, appErrors.ErrDuplicateKey))
}

func TestShipmentServiceCreateRejectsZeroAmount(t *testing.T) {
	svc := NewShipmentService(newShipmentStoreStub(), &generatorStub{}, nil, nil)
	req := createReq("SHP-2026-0001")
	req.InvoiceAmount = 0

	_, _, err := svc.Create(context.Background(), req, 3)
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestShipmentServiceUpdateStaleVersion(t *testing.T) {
	store := newShipmentStoreStub()
	svc := NewShipmentService(store, &generatorStub{}, nil, nil)
	shipment, _, err := svc.Create(context.Background(), createReq("SHP-2026-0001"), 3)
	require.NoError(t, err)

	principal := "Globex"
	_, err = svc.Update(context.Background(), shipment.ID, dto.UpdateShipmentRequest{
		ExpectedVersion: shipment.Version + 5,
		Principal:       &principal,
	}, 3)
	require.True(t, appErrors.Is(err, appErrors.ErrConcurrentModification))
}

func TestShipmentServiceUpdateAuditsChangedFields(t *testing.T) {
	store := newShipmentStoreStub()
	svc := NewShipmentService(store, &generatorStub{}, nil, nil)
	shipment, _, err := svc.Create(context.Background(), createReq("SHP-2026-0001"), 3)
	require.NoError(t, err)
	auditsBefore := len(store.audits)

	principal := "Globex"
	updated, err := svc.Update(context.Background(), shipment.ID, dto.UpdateShipmentRequest{
		ExpectedVersion: shipment.Version,
		Principal:       &principal,
	}, 3)
	require.NoError(t, err)
	require.Equal(t, "Globex", updated.Principal)
	require.Equal(t, shipment.Version+1, updated.Version)
	require.Len(t, store.audits, auditsBefore+1)
	require.Equal(t, "principal", store.audits[auditsBefore].FieldName)
}

func TestShipmentServiceUpdateNoChangesIsNoop(t *testing.T) {
	store := newShipmentStoreStub()
	svc := NewShipmentService(store, &generatorStub{}, nil, nil)
	shipment, _, err := svc.Create(context.Background(), createReq("SHP-2026-0001"), 3)
	require.NoError(t, err)
	auditsBefore := len(store.audits)

	updated, err := svc.Update(context.Background(), shipment.ID, dto.UpdateShipmentRequest{
		ExpectedVersion: shipment.Version,
	}, 3)
	require.NoError(t, err)
	require.Equal(t, shipment.Version, updated.Version)
	require.Len(t, store.audits, auditsBefore)
}

func TestShipmentServiceUpdateETA(t *testing.T) {
	store := newShipmentStoreStub()
	svc := NewShipmentService(store, &generatorStub{}, nil, nil)
	shipment, _, err := svc.Create(context.Background(), createReq("SHP-2026-0001"), 3)
	require.NoError(t, err)

	updated, err := svc.UpdateETA(context.Background(), shipment.ID, dto.UpdateETARequest{
		ExpectedVersion: shipment.Version,
		ETA:             dto.NewDate(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)),
	}, 3)
	require.NoError(t, err)
	require.Equal(t, 1, updated.ETAEditCount)
	require.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), updated.ETA)
}

func TestShipmentServiceUpdateETATriggersEscalationCheck(t *testing.T) {
	store := newShipmentStoreStub()
	eval := &evaluatorStub{failOn: map[int64]bool{}}
	svc := NewShipmentService(store, &generatorStub{}, nil, nil, WithShipmentEvaluator(eval))
	shipment, _, err := svc.Create(context.Background(), createReq("SHP-2026-0001"), 3)
	require.NoError(t, err)

	pastETA := time.Now().UTC().AddDate(0, 0, -10)
	updated, err := svc.UpdateETA(context.Background(), shipment.ID, dto.UpdateETARequest{
		ExpectedVersion: shipment.Version,
		ETA:             dto.NewDate(pastETA),
	}, 3)
	require.NoError(t, err)
	require.Equal(t, []int64{shipment.ID}, eval.evaluated)
	require.Equal(t, 1, updated.ETAEditCount)
}

func TestShipmentServiceUpdateETASurvivesEscalationFailure(t *testing.T) {
	store := newShipmentStoreStub()
	svc := NewShipmentService(store, &generatorStub{}, nil, nil,
		WithShipmentEvaluator(&evaluatorStub{failOn: map[int64]bool{1: true}}))
	shipment, _, err := svc.Create(context.Background(), createReq("SHP-2026-0001"), 3)
	require.NoError(t, err)

	updated, err := svc.UpdateETA(context.Background(), shipment.ID, dto.UpdateETARequest{
		ExpectedVersion: shipment.Version,
		ETA:             dto.NewDate(time.Now().UTC().AddDate(0, 0, -5)),
	}, 3)
	require.NoError(t, err)
	require.Equal(t, 1, updated.ETAEditCount)
}

func TestShipmentServiceUpdateETAAuditsEditCount(t *testing.T) {
	store := newShipmentStoreStub()
	svc := NewShipmentService(store, &generatorStub{}, nil, nil)
	shipment, _, err := svc.Create(context.Background(), createReq("SHP-2026-0001"), 3)
	require.NoError(t, err)
	auditsBefore := len(store.audits)

	_, err = svc.UpdateETA(context.Background(), shipment.ID, dto.UpdateETARequest{
		ExpectedVersion: shipment.Version,
		ETA:             dto.NewDate(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)),
	}, 3)
	require.NoError(t, err)

	added := store.audits[auditsBefore:]
	require.Len(t, added, 2)
	fields := map[string]models.AuditRecord{}
	for _, record := range added {
		fields[record.FieldName] = record
	}
	require.Contains(t, fields, "eta")
	require.Contains(t, fields, "eta_edit_count")
	require.Equal(t, "0", *fields["eta_edit_count"].OldValue)
	require.Equal(t, "1", *fields["eta_edit_count"].NewValue)
}

func TestShipmentServiceUpdateETALimitExceeded(t *testing.T) {
	store := newShipmentStoreStub()
	svc := NewShipmentService(store, &generatorStub{}, nil, nil)
	shipment, _, err := svc.Create(context.Background(), createReq("SHP-2026-0001"), 3)
	require.NoError(t, err)
	store.shipments[shipment.ID].ETAEditCount = models.MaxETAEdits

	_, err = svc.UpdateETA(context.Background(), shipment.ID, dto.UpdateETARequest{
		ExpectedVersion: shipment.Version,
		ETA:             dto.NewDate(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)),
	}, 3)
	require.True(t, appErrors.Is(err, appErrors.ErrEditLimitExceeded))
}

func TestShipmentServiceUpdateETASameDateIsNoop(t *testing.T) {
	store := newShipmentStoreStub()
	svc := NewShipmentService(store, &generatorStub{}, nil, nil)
	shipment, _, err := svc.Create(context.Background(), createReq("SHP-2026-0001"), 3)
	require.NoError(t, err)

	updated, err := svc.UpdateETA(context.Background(), shipment.ID, dto.UpdateETARequest{
		ExpectedVersion: shipment.Version,
		ETA:             dto.NewDate(shipment.ETA),
	}, 3)
	require.NoError(t, err)
	require.Equal(t, 0, updated.ETAEditCount)
}

func TestShipmentServiceDeleteNotFound(t *testing.T) {
	svc := NewShipmentService(newShipmentStoreStub(), &generatorStub{}, nil, nil)
	err := svc.Delete(context.Background(), 99, 3)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestShipmentServiceImportIsolatesFailures(t *testing.T) {
	store := newShipmentStoreStub()
	store.duplicateOn = "SHP-2026-0002"
	svc := NewShipmentService(store, &generatorStub{}, nil, nil)

	summary := svc.Import(context.Background(), []dto.CreateShipmentRequest{
		createReq("SHP-2026-0001"),
		createReq("SHP-2026-0002"),
		createReq("SHP-2026-0003"),
	}, 3)
	require.Equal(t, 3, summary.Total)
	require.Equal(t, 2, summary.Successful)
	require.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	require.Equal(t, 2, summary.Errors[0].Row)
	require.Equal(t, "SHP-2026-0002", summary.Errors[0].ShipmentNumber)
}
