package models

// CategoryType is the transaction type a category applies to.
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category is global reference data shared by every user.
type Category struct {
	Base
	Name      string       `gorm:"uniqueIndex;not null;size:100" json:"name"`
	AppliesTo CategoryType `gorm:"type:varchar(20);not null;index" json:"applies_to"`
}
