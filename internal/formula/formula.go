package formula

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/latticehq/lattice/internal/domain"
	"github.com/sirupsen/logrus"
)

type Kind int

const (
	KindLiteral Kind = iota
	KindImportCSV
	KindSum
	KindAverage
	KindSheetRef
)

// Formula is a parsed cell content. Arg carries the URL for IMPORT_CSV and
// the referenced sheet name for sheet references.
type Formula struct {
	Kind Kind
	Arg  string
}

var (
	importCSVRe = regexp.MustCompile(`^=IMPORT_CSV\("(.+)"\)$`)
	sheetRefRe  = regexp.MustCompile(`^=\['?(.*?)'?\]$`)
)

func Parse(content string) Formula {
	if m := importCSVRe.FindStringSubmatch(content); m != nil {
		return Formula{Kind: KindImportCSV, Arg: m[1]}
	}
	if m := sheetRefRe.FindStringSubmatch(content); m != nil {
		return Formula{Kind: KindSheetRef, Arg: m[1]}
	}
	if strings.HasPrefix(content, "=SUM(") {
		return Formula{Kind: KindSum}
	}
	if strings.HasPrefix(content, "=AVERAGE(") {
		return Formula{Kind: KindAverage}
	}
	return Formula{Kind: KindLiteral, Arg: content}
}

// SheetResolver resolves a sheet name inside one workspace. Implemented by
// the spreadsheet repository.
type SheetResolver interface {
	GetByWorkspaceAndName(ctx context.Context, workspaceID uuid.UUID, name string) (*domain.Spreadsheet, error)
}

// Evaluator turns cell content into displayed content. Sheet references
// never leave the workspace the cell belongs to.
type Evaluator struct {
	fetcher *Fetcher
	sheets  SheetResolver
	log     *logrus.Logger
}

func NewEvaluator(fetcher *Fetcher, sheets SheetResolver, log *logrus.Logger) *Evaluator {
	return &Evaluator{fetcher: fetcher, sheets: sheets, log: log}
}

func (e *Evaluator) Evaluate(ctx context.Context, workspaceID uuid.UUID, content string) (string, error) {
	f := Parse(content)
	switch f.Kind {
	case KindImportCSV:
		return e.fetcher.Fetch(ctx, f.Arg)
	case KindSum:
		return "#SUM_RESULT", nil
	case KindAverage:
		return "#AVG_RESULT", nil
	case KindSheetRef:
		sheet, err := e.sheets.GetByWorkspaceAndName(ctx, workspaceID, f.Arg)
		if err != nil {
			return "", err
		}
		if sheet == nil {
			// Log only the workspace the caller is already reading from.
			e.log.WithFields(logrus.Fields{
				"workspace_id":    workspaceID,
				"referenced_name": f.Arg,
			}).Info("sheet reference not found")
			return "#REF_NOT_FOUND", nil
		}
		return "#REF_OK", nil
	default:
		return content, nil
	}
}
