package model

// 图片状态。2 到 4 是审核结论，具体含义由调用方约定。
const (
	ImageStateUnclaimed = 0
	ImageStateInReview  = 1
	ImageStateApproved  = 2
	ImageStateFlagged   = 3
	ImageStateRejected  = 4
)

// TitleLevels 是图片标题层级的数量（First..Fifth）。
const TitleLevels = 5

// Image 对应数据库中的 'image' 表。
// 被检查任务占用的图片 state 非 0，ImageListID 指向该任务。
type Image struct {
	ID               uint    `gorm:"column:imageID;primaryKey;autoIncrement" json:"imageID"`
	First            *string `gorm:"column:First;type:varchar(255);index" json:"First"`
	Second           *string `gorm:"column:Second;type:varchar(255)" json:"Second"`
	Third            *string `gorm:"column:Third;type:varchar(255)" json:"Third"`
	Fourth           *string `gorm:"column:Fourth;type:varchar(255)" json:"Fourth"`
	Fifth            *string `gorm:"column:Fifth;type:varchar(255)" json:"Fifth"`
	State            int     `gorm:"column:state;not null;default:0;index" json:"state"`
	ImageListID      *uint   `gorm:"column:imageListID;index" json:"imageListID"`
	Caption          string  `gorm:"column:caption;type:text" json:"caption"`
	ChinaElementName string  `gorm:"column:chinaElementName;type:varchar(255)" json:"chinaElementName"`
	MD5              string  `gorm:"column:md5;type:varchar(32);index" json:"md5"`
	ImgName          string  `gorm:"column:imgName;type:varchar(255)" json:"imgName"`
	ImgPath          string  `gorm:"column:imgPath;type:varchar(1024)" json:"imgPath"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Image) TableName() string {
	return "image"
}

// Titles 按层级顺序返回图片的标题，未设置的层级为空字符串。
func (i *Image) Titles() [TitleLevels]string {
	var out [TitleLevels]string
	for n, p := range []*string{i.First, i.Second, i.Third, i.Fourth, i.Fifth} {
		if p != nil {
			out[n] = *p
		}
	}
	return out
}

// SetTitles 依次设置 First..Fifth，空字符串写为 NULL。
func (i *Image) SetTitles(titles []string) {
	fields := []**string{&i.First, &i.Second, &i.Third, &i.Fourth, &i.Fifth}
	for n, f := range fields {
		*f = nil
		if n < len(titles) && titles[n] != "" {
			v := titles[n]
			*f = &v
		}
	}
}
