package usecase

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const (
	FormatCSV  = "CSV"
	FormatJSON = "JSON"
)

// Versão da tabela de mapeamento lead → contato do downstream. Mudou o
// schema de contato, sobe a versão.
const ExportSchemaVersion = "v1"

// Tabela estática de mapeamento. A ordem define as colunas do CSV.
var exportFieldMap = []struct {
	Column string
	Value  func(l *entity.Lead) string
}{
	{"contact_id", func(l *entity.Lead) string { return l.ID }},
	{"captured_at", func(l *entity.Lead) string { return l.CreatedAt.UTC().Format(time.RFC3339) }},
	{"email", func(l *entity.Lead) string { return l.Email }},
	{"full_name", func(l *entity.Lead) string { return l.Name }},
	{"company", func(l *entity.Lead) string { return l.Company }},
	{"phone", func(l *entity.Lead) string { return l.Phone }},
	{"notes", func(l *entity.Lead) string { return l.Details }},
	{"lead_source", func(l *entity.Lead) string { return l.Source }},
	{"status", func(l *entity.Lead) string { return l.Status }},
	{"custom_fields", func(l *entity.Lead) string {
		if len(l.CustomFields) == 0 {
			return ""
		}
		raw, _ := json.Marshal(l.CustomFields)
		return string(raw)
	}},
}

type ExportLeadsInput struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Format   string
	// Since é a marca d'água do export anterior, para exports
	// incrementais. Prevalece sobre DateFrom quando mais recente.
	Since *time.Time
}

// ExportLeadsUseCase dirige a paginação da listagem até o cursor acabar
// e escreve o resultado no formato pedido. Zero duplicata e zero buraco
// seguem da garantia de travessia do keyset.
type ExportLeadsUseCase struct {
	Repo entity.LeadRepositoryInterface
	List *ListLeadsUseCase
}

func NewExportLeadsUseCase(repo entity.LeadRepositoryInterface, list *ListLeadsUseCase) *ExportLeadsUseCase {
	return &ExportLeadsUseCase{Repo: repo, List: list}
}

func (uc *ExportLeadsUseCase) Execute(ctx context.Context, input ExportLeadsInput, w io.Writer) error {
	if input.Format != FormatCSV && input.Format != FormatJSON {
		return ValidationErrors{{Field: "format", Message: "must be CSV or JSON"}}
	}

	from := input.DateFrom
	if input.Since != nil && (from == nil || input.Since.After(*from)) {
		from = input.Since
	}

	listInput := ListLeadsInput{DateFrom: from, DateTo: input.DateTo}

	var write func(l *entity.Lead) error
	var flush func() error

	switch input.Format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		header := make([]string, len(exportFieldMap))
		for i, m := range exportFieldMap {
			header[i] = m.Column
		}
		if err := cw.Write(header); err != nil {
			return err
		}
		write = func(l *entity.Lead) error {
			row := make([]string, len(exportFieldMap))
			for i, m := range exportFieldMap {
				row[i] = m.Value(l)
			}
			return cw.Write(row)
		}
		flush = func() error {
			cw.Flush()
			return cw.Error()
		}
	case FormatJSON:
		first := true
		if _, err := io.WriteString(w, "["); err != nil {
			return err
		}
		write = func(l *entity.Lead) error {
			record := make(map[string]string, len(exportFieldMap))
			for _, m := range exportFieldMap {
				if v := m.Value(l); v != "" {
					record[m.Column] = v
				}
			}
			raw, err := json.Marshal(record)
			if err != nil {
				return err
			}
			if !first {
				if _, err := io.WriteString(w, ","); err != nil {
					return err
				}
			}
			first = false
			_, err = w.Write(raw)
			return err
		}
		flush = func() error {
			_, err := io.WriteString(w, "]")
			return err
		}
	}

	var exported []string

	for {
		page, err := uc.List.Execute(ctx, listInput)
		if err != nil {
			return fmt.Errorf("export pagination: %w", err)
		}
		for i := range page.Leads {
			lead := &page.Leads[i]
			if err := write(lead); err != nil {
				return err
			}
			if lead.Status == entity.StatusNotified {
				exported = append(exported, lead.ID)
			}
		}
		if page.NextCursor == "" {
			break
		}
		listInput.Cursor = page.NextCursor
	}

	if err := flush(); err != nil {
		return err
	}

	// Leads já notificados viram EXPORTED. Leads ainda em voo (NEW,
	// NOTIFYING) e dead-letters mantêm o status de despacho.
	for _, id := range exported {
		if err := uc.Repo.UpdateStatus(ctx, id, entity.StatusExported, entity.StatusNotified); err != nil {
			log.Printf("⚠️ Export: falha ao marcar lead %s como EXPORTED: %v", id, err)
		}
	}

	return nil
}
