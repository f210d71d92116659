package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/tutorbot/pkg/models"
)

const (
	mistakeSheet    = "Mistakes"
	vocabularySheet = "Vocabulary"
)

// BuildReport assembles a learner's mistake history and vocabulary into an
// Excel workbook with one sheet per section. The caller owns the returned
// file and must Close it.
func BuildReport(mistakes []models.Mistake, vocabulary []models.VocabularyEntry) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", mistakeSheet)
	f.NewSheet(vocabularySheet)

	if err := writeMistakes(f, mistakes); err != nil {
		return nil, err
	}
	if err := writeVocabulary(f, vocabulary); err != nil {
		return nil, err
	}
	return f, nil
}

func writeMistakes(f *excelize.File, mistakes []models.Mistake) error {
	headers := []string{"Mistake", "Correction", "Category", "Rule", "Explanation", "Examples", "Common Pitfalls", "Timestamp"}
	if err := writeRow(f, mistakeSheet, 1, headers); err != nil {
		return err
	}

	for i, m := range mistakes {
		row := []string{
			m.Mistake,
			m.Correction,
			m.Category,
			m.Rule,
			m.Explanation,
			strings.Join(m.Examples, "; "),
			m.CommonPitfalls,
			m.Timestamp.Format("2006-01-02 15:04"),
		}
		if err := writeRow(f, mistakeSheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeVocabulary(f *excelize.File, vocabulary []models.VocabularyEntry) error {
	headers := []string{"Word or Phrase", "Translation", "Context", "Times Used", "Mastery Level", "Learned At"}
	if err := writeRow(f, vocabularySheet, 1, headers); err != nil {
		return err
	}

	for i, v := range vocabulary {
		row := []string{
			v.WordOrPhrase,
			v.Translation,
			v.Context,
			fmt.Sprintf("%d", v.TimesUsed),
			fmt.Sprintf("%d", v.MasteryLevel),
			v.LearnedAt.Format("2006-01-02 15:04"),
		}
		if err := writeRow(f, vocabularySheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %v", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to write cell %s: %v", cell, err)
		}
	}
	return nil
}
