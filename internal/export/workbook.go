package export

import (
	"bytes"
	"fmt"

	"helpdesk/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	PasswordMask = "********"
)

// Decrypter — расшифровка паролей оборудования (crypto.Cipher).
type Decrypter interface {
	Decrypt(string) (string, error)
}

// OnsiteWorkbook — выгрузка выездов. Колонка организации клиента нужна только
// в выгрузке для сотрудников: клиент и так знает, кто он.
func OnsiteWorkbook(records []models.OnsiteSupportRecord, withClientCompany bool) (*bytes.Buffer, error) {
	header := []any{"Дата", "Клиент"}
	if withClientCompany {
		header = append(header, "Организация клиента")
	}
	header = append(header, "Приход", "Уход", "Часы", "Работы")

	rows := make([][]any, 0, len(records))
	for _, r := range records {
		client := ""
		if r.ClientCredential != nil {
			client = r.ClientCredential.Username
		}
		hours, _ := r.TotalHours()

		row := []any{r.WorkDate, client}
		if withClientCompany {
			company := ""
			if r.ClientCompany != nil {
				company = r.ClientCompany.Name
			}
			row = append(row, company)
		}
		row = append(row, r.CheckInTime, r.CheckOutTime, hours, r.JobDetails)
		rows = append(rows, row)
	}

	return build("Выезды", header, rows)
}

// EquipmentWorkbook — пароли расшифровываются только при withCredentials,
// иначе вместо них маска. Ошибка расшифровки прерывает выгрузку.
func EquipmentWorkbook(items []models.EquipmentInventoryItem, dec Decrypter, withCredentials bool) (*bytes.Buffer, error) {
	header := []any{"Устройство", "Тип", "Адрес", "Организация клиента", "Статус", "Расположение", "Логин", "Пароль", "Описание"}

	rows := make([][]any, 0, len(items))
	for _, it := range items {
		password := ""
		if it.LoginPassword != "" {
			password = PasswordMask
			if withCredentials {
				plain, err := dec.Decrypt(it.LoginPassword)
				if err != nil {
					return nil, fmt.Errorf("decrypt password of equipment %d: %w", it.ID, err)
				}
				password = plain
			}
		}
		company := ""
		if it.ClientCompany != nil {
			company = it.ClientCompany.Name
		}
		rows = append(rows, []any{
			it.DeviceName, it.DeviceType, it.Address, company, string(it.Status),
			it.Location, it.LoginUsername, password, it.Description,
		})
	}

	return build("Оборудование", header, rows)
}

func build(sheet string, header []any, rows [][]any) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return nil, err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}
