package model

// 住所（注文の配送先・請求先スナップショット、ユーザーのプロフィール住所）
// 値として埋め込むので、注文後にユーザー側を変えても注文には影響しない
type Address struct {
	//宛名
	Name string `gorm:"type:varchar(255)" json:"name"`

	//番地など
	Street string `gorm:"type:varchar(255)" json:"street"`

	//市区町村
	City string `gorm:"type:varchar(255)" json:"city"`

	//州・都道府県
	State string `gorm:"type:varchar(100)" json:"state"`

	//郵便番号
	ZipCode string `gorm:"type:varchar(20)" json:"zipCode"`

	Country string `gorm:"type:varchar(100)" json:"country"`

	//電話番号
	Phone string `gorm:"type:varchar(30)" json:"phone"`
}

func (a Address) IsZero() bool {
	return a == Address{}
}
