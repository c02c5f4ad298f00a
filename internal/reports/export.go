package reports

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/pokeclass/pokeclass/internal/models"
	"github.com/pokeclass/pokeclass/pkg/errors"
)

const (
	coinSheet    = "Coin Transactions"
	creditSheet  = "Credit Transactions"
	balanceSheet = "Balances"
)

// Exporter builds ledger workbooks straight from the database so a report
// always reflects committed rows, not service-layer caches.
type Exporter struct {
	db *gorm.DB
}

func NewExporter(db *gorm.DB) *Exporter {
	return &Exporter{db: db}
}

// LedgerWorkbook collects every coin and credit transaction plus current
// balances into a single workbook. The caller owns the returned file and
// is responsible for closing it.
func (e *Exporter) LedgerWorkbook() (*excelize.File, error) {
	var coinTxs []models.CoinTransaction
	if err := e.db.Order("created_at ASC").Find(&coinTxs).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to read coin transactions")
	}

	var creditTxs []models.CreditTransaction
	if err := e.db.Order("created_at ASC").Find(&creditTxs).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to read credit transactions")
	}

	var students []models.Student
	if err := e.db.Order("id ASC").Find(&students).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to read students")
	}

	var credits []models.TeacherCredit
	if err := e.db.Order("teacher_id ASC").Find(&credits).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to read teacher credits")
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", coinSheet)

	if err := writeCoinSheet(f, coinTxs); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeCreditSheet(f, creditTxs); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeBalanceSheet(f, students, credits); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// ExportLedger writes the workbook to path.
func (e *Exporter) ExportLedger(path string) error {
	f, err := e.LedgerWorkbook()
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to save report")
	}
	return nil
}

func writeCoinSheet(f *excelize.File, txs []models.CoinTransaction) error {
	header := []interface{}{"ID", "Student ID", "Amount", "Type", "Reason", "Related Entity", "Related ID", "Created At"}
	if err := f.SetSheetRow(coinSheet, "A1", &header); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to write report header")
	}
	for i, tx := range txs {
		row := []interface{}{
			tx.ID, tx.StudentID, tx.Amount, tx.TransactionType, tx.Reason,
			tx.RelatedEntityType, tx.RelatedEntityID, tx.CreatedAt.Format(time.RFC3339),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(coinSheet, cell, &row); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to write report row")
		}
	}
	return nil
}

func writeCreditSheet(f *excelize.File, txs []models.CreditTransaction) error {
	if _, err := f.NewSheet(creditSheet); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create report sheet")
	}
	header := []interface{}{"ID", "Teacher ID", "Amount", "Type", "Reason", "Related Entity", "Related ID", "Created At"}
	if err := f.SetSheetRow(creditSheet, "A1", &header); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to write report header")
	}
	for i, tx := range txs {
		row := []interface{}{
			tx.ID, tx.TeacherID, tx.Amount, tx.TransactionType, tx.Reason,
			tx.RelatedEntityType, tx.RelatedEntityID, tx.CreatedAt.Format(time.RFC3339),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(creditSheet, cell, &row); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to write report row")
		}
	}
	return nil
}

func writeBalanceSheet(f *excelize.File, students []models.Student, credits []models.TeacherCredit) error {
	if _, err := f.NewSheet(balanceSheet); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create report sheet")
	}
	header := []interface{}{"Kind", "ID", "Name", "Coins / Credits", "Used Credits", "Unlimited"}
	if err := f.SetSheetRow(balanceSheet, "A1", &header); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to write report header")
	}
	rowIdx := 2
	for _, s := range students {
		row := []interface{}{"student", s.ID, s.Name, s.Coins, "", ""}
		if err := f.SetSheetRow(balanceSheet, fmt.Sprintf("A%d", rowIdx), &row); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to write report row")
		}
		rowIdx++
	}
	for _, c := range credits {
		row := []interface{}{"teacher", c.TeacherID, "", c.Credits, c.UsedCredits, c.Unlimited}
		if err := f.SetSheetRow(balanceSheet, fmt.Sprintf("A%d", rowIdx), &row); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to write report row")
		}
		rowIdx++
	}
	return nil
}
