package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/domain/sheet"
	"stockbook/pkg/logger"
)

// Operation names, as reported to the Recorder.
const (
	OpList   = "list"
	OpGet    = "get"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Request is a transport-independent dispatch request.
type Request struct {
	Method     string
	Resource   string
	ResourceID string
	Payload    json.RawMessage
}

// Response is a successful dispatch result. Body is JSON-serializable.
type Response struct {
	Status int
	Body   any
}

// StatusBody is the body of successful mutations.
type StatusBody struct {
	Status string `json:"status"`
}

// Recorder observes dispatched operations.
type Recorder interface {
	ObserveDispatch(resource, operation, outcome string, elapsed time.Duration)
}

// Dispatcher executes requests against a sheet store.
type Dispatcher struct {
	store    sheet.Store
	registry *Registry
	validate bool
	recorder Recorder
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRegistry replaces the default resource registry.
func WithRegistry(r *Registry) Option {
	return func(d *Dispatcher) { d.registry = r }
}

// WithValidation toggles payload validation. It is on by default.
func WithValidation(enabled bool) Option {
	return func(d *Dispatcher) { d.validate = enabled }
}

// WithRecorder sets the operation recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// NewDispatcher creates a dispatcher over store.
func NewDispatcher(store sheet.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		registry: DefaultRegistry(),
		validate: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the resources this dispatcher serves.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch routes a request to the matching operation.
// Failures are returned as *apperror.AppError values.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Response, error) {
	def, ok := d.registry.Lookup(req.Resource)
	if !ok {
		return nil, apperror.NewUnknownResource(req.Resource).WithDetail("known", d.registry.Names())
	}

	var (
		op   string
		resp *Response
		err  error
	)
	start := time.Now()

	switch strings.ToUpper(req.Method) {
	case http.MethodGet:
		if req.ResourceID == "" {
			op = OpList
			resp, err = d.list(ctx, def)
		} else {
			op = OpGet
			resp, err = d.get(ctx, def, req.ResourceID)
		}
	case http.MethodPost:
		op = OpCreate
		resp, err = d.create(ctx, def, req.Payload)
	case http.MethodPut:
		op = OpUpdate
		if req.ResourceID == "" {
			err = errMissingID()
			break
		}
		resp, err = d.update(ctx, def, req.ResourceID, req.Payload)
	case http.MethodDelete:
		op = OpDelete
		if req.ResourceID == "" {
			err = errMissingID()
			break
		}
		resp, err = d.delete(ctx, def, req.ResourceID)
	default:
		return nil, apperror.NewMethodNotAllowed(req.Method)
	}

	if d.recorder != nil {
		d.recorder.ObserveDispatch(def.Name, op, outcome(err), time.Since(start))
	}
	return resp, err
}

func errMissingID() error {
	return apperror.NewValidation("resourceId not provided")
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr, ok := apperror.AsAppError(err); ok {
		return strings.ToLower(appErr.Code)
	}
	return "error"
}

// --- Operations ---

func (d *Dispatcher) list(ctx context.Context, def Definition) (*Response, error) {
	data, err := d.store.Rows(ctx, def.Table.Name)
	if err != nil {
		return nil, apperror.NewStorage("list "+def.Name, err)
	}
	keyIndex := data.ColumnIndex(def.KeyColumn)

	out := make([]sheet.Record, 0, len(data.Rows))
	for _, row := range data.Rows {
		rec, err := sheet.ToRecord(def.Table, data.Header, row)
		if err != nil {
			return nil, apperror.NewStorage("list "+def.Name, err)
		}
		rec["id"] = sheet.KeyOf(row, keyIndex)
		out = append(out, rec)
	}
	return &Response{Status: http.StatusOK, Body: out}, nil
}

func (d *Dispatcher) get(ctx context.Context, def Definition, id string) (*Response, error) {
	var rec sheet.Record
	err := d.store.RunInTransaction(ctx, func(ctx context.Context) error {
		data, idx, err := d.index(ctx, def.Table, def.KeyColumn)
		if err != nil {
			return err
		}
		row, ok := idx.First(id)
		if !ok {
			return apperror.NewNotFound(def.Singular, id)
		}
		if rec, err = sheet.ToRecord(def.Table, data.Header, row); err != nil {
			return err
		}
		rec["id"] = id

		if def.Items == nil {
			return nil
		}
		items, err := d.items(ctx, def, id)
		if err != nil {
			return err
		}
		rec["items"] = items
		return nil
	})
	if err != nil {
		return nil, storageErr("get "+def.Singular, err)
	}
	return &Response{Status: http.StatusOK, Body: rec}, nil
}

func (d *Dispatcher) items(ctx context.Context, def Definition, id string) ([]any, error) {
	data, idx, err := d.index(ctx, *def.Items, def.KeyColumn)
	if err != nil {
		return nil, err
	}

	rows := idx.All(id)
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		rec, err := sheet.ToRecord(*def.Items, data.Header, row)
		if err != nil {
			return nil, err
		}
		if def.ItemView != nil {
			out = append(out, def.ItemView(rec))
			continue
		}
		delete(rec, def.KeyField())
		out = append(out, rec)
	}
	return out, nil
}

func (d *Dispatcher) create(ctx context.Context, def Definition, payload json.RawMessage) (*Response, error) {
	rec, err := d.decode(def, payload)
	if err != nil {
		return nil, err
	}

	err = d.store.RunInTransaction(ctx, func(ctx context.Context) error {
		return d.insert(ctx, def, rec)
	})
	if err != nil {
		return nil, storageErr("create "+def.Singular, err)
	}

	logger.Info(ctx, def.Singular+" created", "id", rec.String(def.KeyField()))
	return &Response{
		Status: http.StatusCreated,
		Body:   StatusBody{Status: fmt.Sprintf("Created %s successfully", def.Singular)},
	}, nil
}

func (d *Dispatcher) update(ctx context.Context, def Definition, id string, payload json.RawMessage) (*Response, error) {
	rec, err := d.decode(def, payload)
	if err != nil {
		return nil, err
	}

	err = d.store.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := d.remove(ctx, def, id); err != nil {
			return err
		}
		return d.insert(ctx, def, rec)
	})
	if err != nil {
		return nil, storageErr("update "+def.Singular, err)
	}

	logger.Info(ctx, def.Singular+" updated", "id", id, "new_id", rec.String(def.KeyField()))
	return &Response{
		Status: http.StatusOK,
		Body:   StatusBody{Status: fmt.Sprintf("Updated %s successfully", def.Singular)},
	}, nil
}

func (d *Dispatcher) delete(ctx context.Context, def Definition, id string) (*Response, error) {
	err := d.store.RunInTransaction(ctx, func(ctx context.Context) error {
		return d.remove(ctx, def, id)
	})
	if err != nil {
		return nil, storageErr("delete "+def.Singular, err)
	}

	logger.Info(ctx, def.Singular+" deleted", "id", id)
	return &Response{
		Status: http.StatusOK,
		Body:   StatusBody{Status: fmt.Sprintf("Successfully deleted %s %s", def.Singular, id)},
	}, nil
}

// --- Row-level helpers; callers hold a transaction ---

// insert appends the parent row and one row per item.
func (d *Dispatcher) insert(ctx context.Context, def Definition, rec sheet.Record) error {
	key := strings.TrimSpace(rec.String(def.KeyField()))

	data, idx, err := d.index(ctx, def.Table, def.KeyColumn)
	if err != nil {
		return err
	}
	if idx.Has(key) {
		return apperror.NewDuplicate(def.Singular, def.KeyField(), key)
	}

	cells, err := sheet.FromRecord(def.Table, data.Header, rec)
	if err != nil {
		return apperror.NewValidation(err.Error())
	}
	if err := d.store.Append(ctx, def.Table.Name, cells); err != nil {
		return fmt.Errorf("append %s: %w", def.Table.Name, err)
	}

	if def.Items == nil {
		return nil
	}

	items, err := payloadItems(rec)
	if err != nil {
		return err
	}
	itemData, err := d.store.Rows(ctx, def.Items.Name)
	if err != nil {
		return fmt.Errorf("read %s: %w", def.Items.Name, err)
	}
	for i, item := range items {
		item[def.KeyField()] = rec[def.KeyField()]
		cells, err := sheet.FromRecord(*def.Items, itemData.Header, item)
		if err != nil {
			return apperror.NewValidation(fmt.Sprintf("items[%d]: %s", i, err.Error()))
		}
		if err := d.store.Append(ctx, def.Items.Name, cells); err != nil {
			return fmt.Errorf("append %s: %w", def.Items.Name, err)
		}
	}
	return nil
}

// remove deletes the parent row stored under id and every item row of id.
func (d *Dispatcher) remove(ctx context.Context, def Definition, id string) error {
	_, idx, err := d.index(ctx, def.Table, def.KeyColumn)
	if err != nil {
		return err
	}
	row, ok := idx.Last(id)
	if !ok {
		return apperror.NewNotFound(def.Singular, id)
	}
	if err := d.store.Delete(ctx, def.Table.Name, row.Ref); err != nil {
		return fmt.Errorf("delete %s: %w", def.Table.Name, err)
	}

	if def.Items == nil {
		return nil
	}
	_, itemIdx, err := d.index(ctx, *def.Items, def.KeyColumn)
	if err != nil {
		return err
	}
	if refs := itemIdx.Refs(id); len(refs) > 0 {
		if err := d.store.Delete(ctx, def.Items.Name, refs...); err != nil {
			return fmt.Errorf("delete %s: %w", def.Items.Name, err)
		}
	}
	return nil
}

func (d *Dispatcher) index(ctx context.Context, table sheet.Table, keyColumn string) (*sheet.Data, *sheet.Index, error) {
	data, err := d.store.Rows(ctx, table.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", table.Name, err)
	}
	idx, err := sheet.NewIndex(data, keyColumn)
	if err != nil {
		return nil, nil, err
	}
	return data, idx, nil
}

// --- Payload handling ---

// decode parses and validates a payload into a wire record.
func (d *Dispatcher) decode(def Definition, payload json.RawMessage) (sheet.Record, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, apperror.NewInvalidInput("payload not provided", nil)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var rec sheet.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, apperror.NewInvalidInput("invalid payload: "+err.Error(), err)
	}
	if rec == nil {
		return nil, apperror.NewInvalidInput("payload must be a JSON object", nil)
	}

	if d.validate && def.Validate != nil {
		if err := def.Validate(payload); err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(rec.String(def.KeyField())) == "" {
		return nil, apperror.NewValidation(def.KeyField() + " is required").
			WithDetail("fields", []string{def.KeyField()})
	}
	return rec, nil
}

// payloadItems extracts the items array of a payload.
func payloadItems(rec sheet.Record) ([]sheet.Record, error) {
	raw, ok := rec["items"]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, apperror.NewValidation("items must be an array")
	}

	items := make([]sheet.Record, len(list))
	for i, v := range list {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, apperror.NewValidation(fmt.Sprintf("items[%d] must be an object", i))
		}
		items[i] = sheet.Record(obj)
	}
	return items, nil
}

// storageErr passes AppErrors through and wraps everything else.
func storageErr(op string, err error) error {
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewStorage(op, err)
}
