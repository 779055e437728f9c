package bronze

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Alexander-Kershaw/JANUS/internal/model"
	"github.com/Alexander-Kershaw/JANUS/internal/store"
)

// billingColumns is the required CSV header, also the field order of the
// billing row hash.
var billingColumns = []string{"billing_date", "user_id", "event", "plan_id"}

// BillingRecord is one CSV row, cells as read.
type BillingRecord struct {
	BillingDate string
	UserID      string
	Event       string
	PlanID      string
}

func loadBillingFile(ctx context.Context, tx store.Store, path string, ts time.Time, batchSize int, res *Result) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("%s: read header: %w", path, err)
	}
	index, err := headerIndex(header)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	var (
		batch []*model.BronzeBilling
		read  int64
	)
	flush := func() error {
		n, err := tx.InsertBronzeBilling(ctx, batch)
		if err != nil {
			return err
		}
		res.InsertAttempts += int64(len(batch))
		res.Inserted += n
		batch = nil
		return nil
	}

	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return read, fmt.Errorf("%s: %w", path, err)
		}
		line, _ := r.FieldPos(0)
		rec := BillingRecord{
			BillingDate: fields[index[0]],
			UserID:      fields[index[1]],
			Event:       fields[index[2]],
			PlanID:      fields[index[3]],
		}
		b, err := ParseBilling(path, rec, ts)
		if err != nil {
			return read, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		read++
		res.RecordsRead++
		batch = append(batch, b)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return read, err
			}
		}
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return read, err
		}
	}
	return read, nil
}

// headerIndex maps billingColumns to their positions in header.
func headerIndex(header []string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		pos[h] = i
	}
	index := make([]int, len(billingColumns))
	for i, col := range billingColumns {
		p, ok := pos[col]
		if !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
		index[i] = p
	}
	return index, nil
}

// ParseBilling converts one CSV row into a bronze row. Cells are trimmed and
// empty cells become nil.
func ParseBilling(sourceFile string, rec BillingRecord, ingestionTS time.Time) (*model.BronzeBilling, error) {
	b := &model.BronzeBilling{
		UserID:      cell(rec.UserID),
		Event:       cell(rec.Event),
		PlanID:      cell(rec.PlanID),
		SourceFile:  sourceFile,
		IngestionTS: ingestionTS,
		RowHash:     RowHash(sourceFile, rec.canonical()),
	}
	if s := cell(rec.BillingDate); s != nil {
		d, err := time.Parse(time.DateOnly, *s)
		if err != nil {
			return nil, fmt.Errorf("field billing_date: invalid date %q", *s)
		}
		b.BillingDate = &d
	}
	return b, nil
}

func (r BillingRecord) canonical() string {
	values := []string{r.BillingDate, r.UserID, r.Event, r.PlanID}
	parts := make([]string, len(billingColumns))
	for i, col := range billingColumns {
		parts[i] = col + "=" + strings.TrimSpace(values[i])
	}
	return strings.Join(parts, "|")
}

func cell(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
