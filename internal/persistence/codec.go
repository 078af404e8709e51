package persistence

import (
	"encoding/json"
	"time"

	"medication-adherence/internal/domain/doselog"
	"medication-adherence/internal/domain/medications"
)

// Los nombres de campo son los que ya usan los datos guardados por versiones anteriores
// (notifIds, medId, takenAtISO) para poder leer datos existentes.

type medicationRecord struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Times     []string          `json:"times"`
	NotifIDs  map[string]string `json:"notifIds"`
	Handles   []string          `json:"handles,omitempty"`
	CreatedAt *time.Time        `json:"createdAt,omitempty"`
}

type logRecord struct {
	Date    string    `json:"date"`
	MedID   string    `json:"medId"`
	Time    string    `json:"time"`
	TakenAt time.Time `json:"takenAtISO"`
}

func encodeMedications(meds []medications.Medication) (string, error) {
	out := make([]medicationRecord, 0, len(meds))
	for _, m := range meds {
		rec := medicationRecord{
			ID:       m.ID,
			Name:     m.Name,
			Times:    m.Times,
			NotifIDs: m.ReminderHandles,
			Handles:  m.Handles,
		}
		if rec.Times == nil {
			rec.Times = []string{}
		}
		if rec.NotifIDs == nil {
			rec.NotifIDs = map[string]string{}
		}
		if !m.CreatedAt.IsZero() {
			ts := m.CreatedAt
			rec.CreatedAt = &ts
		}
		out = append(out, rec)
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMedications(raw string) ([]medications.Medication, error) {
	var recs []medicationRecord
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, err
	}

	out := make([]medications.Medication, 0, len(recs))
	for _, r := range recs {
		m := medications.Medication{
			ID:              r.ID,
			Name:            r.Name,
			Times:           r.Times,
			ReminderHandles: r.NotifIDs,
			Handles:         r.Handles,
		}
		if m.Times == nil {
			m.Times = []string{}
		}
		if m.ReminderHandles == nil {
			m.ReminderHandles = map[string]string{}
		}
		if r.CreatedAt != nil {
			m.CreatedAt = *r.CreatedAt
		}
		out = append(out, m)
	}
	return out, nil
}

func encodeLogs(entries []doselog.Entry) (string, error) {
	out := make([]logRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, logRecord{
			Date:    e.Date,
			MedID:   e.MedicationID,
			Time:    e.Time,
			TakenAt: e.TakenAt,
		})
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeLogs(raw string) ([]doselog.Entry, error) {
	var recs []logRecord
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, err
	}

	out := make([]doselog.Entry, 0, len(recs))
	for _, r := range recs {
		out = append(out, doselog.Entry{
			Date:         r.Date,
			MedicationID: r.MedID,
			Time:         r.Time,
			TakenAt:      r.TakenAt,
		})
	}
	return out, nil
}
