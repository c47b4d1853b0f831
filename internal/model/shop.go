package model

// Shop 店铺
type Shop struct {
	BaseModel
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Address     string `gorm:"size:200" json:"address"`
	Phone       string `gorm:"size:20" json:"phone"`
	Description string `gorm:"type:text" json:"description"`
	Logo        string `gorm:"size:500" json:"logo"`
	IsActive    bool   `gorm:"not null;index" json:"is_active"`
}

func (Shop) TableName() string {
	return "shops"
}

// Notice 店铺公告
type Notice struct {
	BaseModel
	ShopID   int64  `gorm:"not null;index" json:"shop_id"`
	Shop     *Shop  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Title    string `gorm:"size:200;not null" json:"title"`
	Content  string `gorm:"type:text" json:"content"`
	IsActive bool   `gorm:"not null" json:"is_active"`
}

func (Notice) TableName() string {
	return "notices"
}
