package persistent

import (
	"context"

	"studyspot/pkg/apperror"
	"studyspot/pkg/models"
	"studyspot/services/library/internal/entity"

	"gorm.io/gorm"
)

// LibraryRepository covers libraries, their seats and the tenant's fee plans.
// An empty tenantID lifts the tenant filter for platform callers.
type LibraryRepository interface {
	CreateLibrary(ctx context.Context, library *entity.Library) error
	GetLibrary(ctx context.Context, tenantID, id string) (*entity.Library, error)
	ListLibraries(ctx context.Context, tenantID string, includeInactive bool) ([]*entity.Library, error)
	UpdateLibrary(ctx context.Context, library *entity.Library) error

	CreateSeats(ctx context.Context, seats []*entity.Seat) error
	ExistingSeatLabels(ctx context.Context, libraryID string, labels []string) (map[string]bool, error)
	ListSeats(ctx context.Context, tenantID, libraryID string) ([]*entity.Seat, error)
	GetSeat(ctx context.Context, tenantID, id string) (*entity.Seat, error)
	UpdateSeat(ctx context.Context, seat *entity.Seat) error

	CreateFeePlan(ctx context.Context, plan *entity.FeePlan) error
	GetFeePlan(ctx context.Context, tenantID, id string) (*entity.FeePlan, error)
	ListFeePlans(ctx context.Context, tenantID, libraryID string, includeInactive bool) ([]*entity.FeePlan, error)
	UpdateFeePlan(ctx context.Context, plan *entity.FeePlan) error
}

type libraryRepository struct {
	db *gorm.DB
}

func NewLibraryRepository(db *gorm.DB) LibraryRepository {
	return &libraryRepository{db: db}
}

func scoped(db *gorm.DB, column, tenantID string) *gorm.DB {
	if tenantID == "" {
		return db
	}
	return db.Where(column+" = ?", tenantID)
}

func (r *libraryRepository) CreateLibrary(ctx context.Context, library *entity.Library) error {
	libraryModel := ToLibraryModel(library)
	if err := r.db.WithContext(ctx).Create(libraryModel).Error; err != nil {
		return err
	}
	*library = *ToLibraryEntity(libraryModel)
	return nil
}

type libraryRow struct {
	models.Library `gorm:"embedded"`
	SeatCount      int64
}

const seatCountColumn = "libraries.*, (SELECT COUNT(*) FROM seats WHERE seats.library_id = libraries.id) AS seat_count"

func (row *libraryRow) toEntity() *entity.Library {
	library := ToLibraryEntity(&row.Library)
	library.SeatCount = row.SeatCount
	return library
}

func (r *libraryRepository) GetLibrary(ctx context.Context, tenantID, id string) (*entity.Library, error) {
	var row libraryRow
	query := scoped(r.db.WithContext(ctx).Table("libraries").Select(seatCountColumn), "libraries.tenant_id", tenantID)
	if err := query.Where("libraries.id = ?", id).Take(&row).Error; err != nil {
		return nil, apperror.FromDB(err, "library")
	}
	return row.toEntity(), nil
}

func (r *libraryRepository) ListLibraries(ctx context.Context, tenantID string, includeInactive bool) ([]*entity.Library, error) {
	var rows []libraryRow
	query := scoped(r.db.WithContext(ctx).Table("libraries").Select(seatCountColumn), "libraries.tenant_id", tenantID)
	if !includeInactive {
		query = query.Where("libraries.is_active = ?", true)
	}
	if err := query.Order("libraries.name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	libraries := make([]*entity.Library, len(rows))
	for i := range rows {
		libraries[i] = rows[i].toEntity()
	}
	return libraries, nil
}

func (r *libraryRepository) UpdateLibrary(ctx context.Context, library *entity.Library) error {
	return r.db.WithContext(ctx).Save(ToLibraryModel(library)).Error
}

func (r *libraryRepository) CreateSeats(ctx context.Context, seats []*entity.Seat) error {
	if len(seats) == 0 {
		return nil
	}

	seatModels := make([]*models.Seat, len(seats))
	for i, seat := range seats {
		seatModels[i] = ToSeatModel(seat)
	}
	if err := r.db.WithContext(ctx).CreateInBatches(seatModels, 100).Error; err != nil {
		return apperror.FromDB(err, "seat")
	}
	for i, m := range seatModels {
		*seats[i] = *ToSeatEntity(m)
	}
	return nil
}

func (r *libraryRepository) ExistingSeatLabels(ctx context.Context, libraryID string, labels []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(labels) == 0 {
		return existing, nil
	}

	var found []string
	if err := r.db.WithContext(ctx).Model(&models.Seat{}).
		Where("library_id = ? AND label IN ?", libraryID, labels).
		Pluck("label", &found).Error; err != nil {
		return nil, err
	}
	for _, label := range found {
		existing[label] = true
	}
	return existing, nil
}

func (r *libraryRepository) ListSeats(ctx context.Context, tenantID, libraryID string) ([]*entity.Seat, error) {
	var seatModels []models.Seat
	query := scoped(r.db.WithContext(ctx), "tenant_id", tenantID)
	if err := query.Where("library_id = ?", libraryID).Order("label ASC").Find(&seatModels).Error; err != nil {
		return nil, err
	}

	seats := make([]*entity.Seat, len(seatModels))
	for i := range seatModels {
		seats[i] = ToSeatEntity(&seatModels[i])
	}
	return seats, nil
}

func (r *libraryRepository) GetSeat(ctx context.Context, tenantID, id string) (*entity.Seat, error) {
	var seatModel models.Seat
	if err := scoped(r.db.WithContext(ctx), "tenant_id", tenantID).Where("id = ?", id).First(&seatModel).Error; err != nil {
		return nil, apperror.FromDB(err, "seat")
	}
	return ToSeatEntity(&seatModel), nil
}

func (r *libraryRepository) UpdateSeat(ctx context.Context, seat *entity.Seat) error {
	return r.db.WithContext(ctx).Save(ToSeatModel(seat)).Error
}

func (r *libraryRepository) CreateFeePlan(ctx context.Context, plan *entity.FeePlan) error {
	planModel := ToFeePlanModel(plan)
	if err := r.db.WithContext(ctx).Create(planModel).Error; err != nil {
		return err
	}
	*plan = *ToFeePlanEntity(planModel)
	return nil
}

func (r *libraryRepository) GetFeePlan(ctx context.Context, tenantID, id string) (*entity.FeePlan, error) {
	var planModel models.FeePlan
	if err := scoped(r.db.WithContext(ctx), "tenant_id", tenantID).Where("id = ?", id).First(&planModel).Error; err != nil {
		return nil, apperror.FromDB(err, "fee plan")
	}
	return ToFeePlanEntity(&planModel), nil
}

// ListFeePlans returns tenant-wide plans plus those of libraryID when set.
func (r *libraryRepository) ListFeePlans(ctx context.Context, tenantID, libraryID string, includeInactive bool) ([]*entity.FeePlan, error) {
	var planModels []models.FeePlan
	query := scoped(r.db.WithContext(ctx), "tenant_id", tenantID)
	if libraryID != "" {
		query = query.Where("library_id IS NULL OR library_id = ?", libraryID)
	}
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order("price ASC").Find(&planModels).Error; err != nil {
		return nil, err
	}

	plans := make([]*entity.FeePlan, len(planModels))
	for i := range planModels {
		plans[i] = ToFeePlanEntity(&planModels[i])
	}
	return plans, nil
}

func (r *libraryRepository) UpdateFeePlan(ctx context.Context, plan *entity.FeePlan) error {
	return r.db.WithContext(ctx).Save(ToFeePlanModel(plan)).Error
}
