package database

import "gorm.io/gorm"

// ForCompany ограничивает запрос строками одного арендатора.
// Всё, что читает или пишет данные арендатора, должно идти через этот scope.
// Запрос без него видит все компании и допустим только после проверки в guard.
func ForCompany(companyID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("company_id = ?", companyID)
	}
}

// Tenant — короткая запись db.Scopes(ForCompany(id)).
func Tenant(db *gorm.DB, companyID uint) *gorm.DB {
	return db.Scopes(ForCompany(companyID))
}
