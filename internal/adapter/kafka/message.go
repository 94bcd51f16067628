package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/covid-data-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Table names carried in the "table" message header.
const (
	TableCumulative   = "cumulative"
	TableDaily        = "daily"
	TableMonthly      = "monthly"
	TableLongForm     = "long_form"
	TableStateProfile = "state_profile"
	TableNational     = "national"
	TableContinent    = "continent"
	TableCorrection   = "correction"
)

// regionRow is the wire form of one row of a wide per-region table.
type regionRow struct {
	Date      string           `json:"date,omitempty"`
	YearMonth string           `json:"year_month,omitempty"`
	Values    map[string]int64 `json:"values"`
}

type correctionRow struct {
	Date   string `json:"date"`
	Region string `json:"region"`
	Raw    int64  `json:"raw"`
	Value  int64  `json:"value"`
	Note   string `json:"note,omitempty"`
}

type nationalRow struct {
	ISOCode  string `json:"iso_code"`
	Location string `json:"location"`
	domain.NationalRecord
}

// snapshotMessages flattens a snapshot into one message per table row.
// Keys are stable across runs so compacted topics keep the latest value per row.
func snapshotMessages(snap domain.Snapshot) ([]kafkago.Message, error) {
	b := messageBuilder{
		headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(snap.RunID)},
			{Key: "computed_at", Value: []byte(snap.ComputedAt.Format(time.RFC3339))},
		},
	}

	for _, row := range snap.Cumulative.Rows {
		b.add(TableCumulative, row.Date.Format(domain.DateLayout), regionRow{
			Date:   row.Date.Format(time.DateOnly),
			Values: byRegion(snap.Cumulative.Regions, row.Values),
		})
	}
	for _, row := range snap.Daily.Rows {
		b.add(TableDaily, row.Date.Format(domain.DateLayout), regionRow{
			Date:   row.Date.Format(time.DateOnly),
			Values: byRegion(snap.Daily.Regions, row.Values),
		})
	}
	for _, c := range snap.Daily.Corrections {
		b.add(TableCorrection, c.Date.Format(domain.DateLayout)+"|"+c.Region, correctionRow{
			Date:   c.Date.Format(time.DateOnly),
			Region: c.Region,
			Raw:    c.Raw,
			Value:  c.Value,
			Note:   c.Note,
		})
	}
	for _, row := range snap.Monthly.Rows {
		b.add(TableMonthly, row.YearMonth, regionRow{
			YearMonth: row.YearMonth,
			Values:    byRegion(snap.Monthly.Regions, row.Values),
		})
	}
	for _, rec := range snap.LongForm {
		b.add(TableLongForm, rec.State+"|"+rec.Date.Format(domain.DateLayout), rec)
	}
	for _, p := range snap.Profiles {
		b.add(TableStateProfile, p.Region, p)
	}
	for _, rec := range snap.National.Records {
		b.add(TableNational, snap.National.ISOCode+"|"+rec.Date.Format(time.DateOnly), nationalRow{
			ISOCode:        snap.National.ISOCode,
			Location:       snap.National.Location,
			NationalRecord: rec,
		})
	}
	for _, c := range snap.Continent {
		b.add(TableContinent, c.ISOCode, c)
	}

	if b.err != nil {
		return nil, b.err
	}
	return b.msgs, nil
}

type messageBuilder struct {
	headers []kafkago.Header
	msgs    []kafkago.Message
	err     error
}

func (b *messageBuilder) add(table, key string, v any) {
	if b.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		b.err = fmt.Errorf("serialize %s row %q: %w", table, key, err)
		return
	}
	headers := make([]kafkago.Header, 0, len(b.headers)+1)
	headers = append(headers, kafkago.Header{Key: "table", Value: []byte(table)})
	headers = append(headers, b.headers...)
	b.msgs = append(b.msgs, kafkago.Message{
		Key:     []byte(table + "|" + key),
		Value:   data,
		Headers: headers,
	})
}

func byRegion(regions []string, values []int64) map[string]int64 {
	m := make(map[string]int64, len(regions))
	for i, r := range regions {
		m[r] = values[i]
	}
	return m
}
