package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gorm.io/gorm"

	"github.com/fleetdesk/backend/internal/interceptor"
	"github.com/fleetdesk/backend/internal/models"
)

var (
	ErrUnknownResource = errors.New("unknown resource")
	ErrNotFound        = errors.New("record not found")
	ErrInvalidPayload  = errors.New("invalid payload")
)

const dateLayout = "2006-01-02"

// readOnlyFields are managed by the database and never taken from input.
var readOnlyFields = []string{"id", "created_at", "updated_at"}

type resourceKind struct {
	newModel func() any
	newSlice func() any
	order    string
}

var resourceKinds = map[string]resourceKind{
	"vehicles": {
		newModel: func() any { return &models.Vehicle{} },
		newSlice: func() any { return &[]models.Vehicle{} },
		order:    "plate asc",
	},
	"transactions": {
		newModel: func() any { return &models.Transaction{} },
		newSlice: func() any { return &[]models.Transaction{} },
		order:    "date desc, created_at desc",
	},
	"drivers": {
		newModel: func() any { return &models.Driver{} },
		newSlice: func() any { return &[]models.Driver{} },
		order:    "name asc",
	},
	"subscriptions": {
		newModel: func() any { return &models.Subscription{} },
		newSlice: func() any { return &[]models.Subscription{} },
		order:    "created_at desc",
	},
}

// Resources returns the names of every persisted resource, sorted.
func Resources() []string {
	out := make([]string, 0, len(resourceKinds))
	for name := range resourceKinds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ResourceService is the generic persistence collaborator for fleet
// resources. It expects data that has already been sanitized.
type ResourceService struct {
	db       *gorm.DB
	validate *validator.Validate
}

var _ interceptor.Store = (*ResourceService)(nil)

// NewResourceService returns a ResourceService using the provided DB
func NewResourceService(db *gorm.DB) *ResourceService {
	return &ResourceService{db: db, validate: validator.New()}
}

func kindOf(resource string) (resourceKind, error) {
	k, ok := resourceKinds[resource]
	if !ok {
		return resourceKind{}, fmt.Errorf("%w: %q", ErrUnknownResource, resource)
	}
	return k, nil
}

// Create decodes data into a new record and stores it.
func (s *ResourceService) Create(ctx context.Context, resource string, data map[string]any) (map[string]any, error) {
	kind, err := kindOf(resource)
	if err != nil {
		return nil, err
	}
	rec := kind.newModel()
	if err := s.fill(rec, data); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("create %s: %w", resource, err)
	}
	return toMap(rec)
}

// Update applies the fields present in data to an existing record.
func (s *ResourceService) Update(ctx context.Context, resource, id string, data map[string]any) (map[string]any, error) {
	kind, err := kindOf(resource)
	if err != nil {
		return nil, err
	}
	rec := kind.newModel()
	if err := s.first(ctx, rec, id); err != nil {
		return nil, err
	}
	if err := s.fill(rec, data); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return nil, fmt.Errorf("update %s: %w", resource, err)
	}
	return toMap(rec)
}

// Delete removes a record by id.
func (s *ResourceService) Delete(ctx context.Context, resource, id string) error {
	kind, err := kindOf(resource)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Delete(kind.newModel(), "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", resource, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a record by id.
func (s *ResourceService) Get(ctx context.Context, resource, id string) (map[string]any, error) {
	kind, err := kindOf(resource)
	if err != nil {
		return nil, err
	}
	rec := kind.newModel()
	if err := s.first(ctx, rec, id); err != nil {
		return nil, err
	}
	return toMap(rec)
}

// List returns every record of resource in its natural order.
func (s *ResourceService) List(ctx context.Context, resource string) ([]map[string]any, error) {
	kind, err := kindOf(resource)
	if err != nil {
		return nil, err
	}
	list := kind.newSlice()
	if err := s.db.WithContext(ctx).Order(kind.order).Find(list).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", resource, err)
	}
	var out []map[string]any
	if err := roundTrip(list, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out, nil
}

func (s *ResourceService) first(ctx context.Context, rec any, id string) error {
	if err := s.db.WithContext(ctx).First(rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *ResourceService) fill(rec any, data map[string]any) error {
	if err := decode(data, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := s.validate.Struct(rec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// decode copies data onto out. Unknown keys are an error.
func decode(data map[string]any, out any) error {
	input := make(map[string]any, len(data))
	for k, v := range data {
		input[k] = v
	}
	for _, k := range readOnlyFields {
		delete(input, k)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			decimalCommaHook,
			emptyTimeHook,
			mapstructure.StringToTimeHookFunc(dateLayout),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// decimalCommaHook accepts "12,50" for float fields.
func decimalCommaHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || (to.Kind() != reflect.Float64 && to.Kind() != reflect.Float32) {
		return data, nil
	}
	return strings.Replace(data.(string), ",", ".", 1), nil
}

// emptyTimeHook turns "" into the zero time instead of a parse error.
func emptyTimeHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String && to == reflect.TypeOf(time.Time{}) && data.(string) == "" {
		return time.Time{}, nil
	}
	return data, nil
}

func toMap(rec any) (map[string]any, error) {
	var out map[string]any
	if err := roundTrip(rec, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func roundTrip(in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return json.Unmarshal(b, out)
}
