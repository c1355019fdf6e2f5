package sync

import "encoding/json"

// Server payload shapes for the synced data domains. Field names follow the
// wire format exactly; localized text arrives as {nl, fr} objects and is
// flattened into nameNl/nameFr style columns on insert.

type localized struct {
	Nl string `json:"nl"`
	Fr string `json:"fr"`
}

type allergenPayload struct {
	Code  string `json:"code"`
	Value string `json:"value"`
}

type productPayload struct {
	ID                     int               `json:"id"`
	GroupID                int               `json:"groupId"`
	PackID                 int               `json:"packId"`
	ItemNum                string            `json:"itemnum"`
	Name                   localized         `json:"name"`
	Description            localized         `json:"description"`
	GroupName              localized         `json:"groupName"`
	PromoText              localized         `json:"promotext"`
	Type                   string            `json:"type"`
	IsNew                  bool              `json:"isNew"`
	C1                     int               `json:"c1"`
	C2                     int               `json:"c2"`
	C3                     int               `json:"c3"`
	C4                     int               `json:"c4"`
	C5                     int               `json:"c5"`
	C6                     int               `json:"c6"`
	StackSize              int               `json:"stackSize"`
	MinOrder               int               `json:"minOrder"`
	DeliverTime            int               `json:"deliverTime"`
	EAN                    string            `json:"ean"`
	SupplierItemIdentifier string            `json:"supplierItemIdentifier"`
	RelativeQuantity       int               `json:"relativeQuantity"`
	QueryWordsNl           string            `json:"queryWordsNl"`
	QueryWordsFr           string            `json:"queryWordsFr"`
	SortOrder              int               `json:"sortOrder"`
	AvailableOn            *string           `json:"availableOn"`
	ContentQuantity        *int              `json:"contentQuantity"`
	ContentUnit            *int              `json:"contentUnit"`
	URL                    string            `json:"url"`
	Color                  *string           `json:"color"`
	Attributes             []int             `json:"attributes"`
	Allergens              []allergenPayload `json:"allergens"`
}

type packingUnitPayload struct {
	ID   int       `json:"id"`
	Name localized `json:"name"`
}

type attributePayload struct {
	ID        int       `json:"id"`
	Attribute int       `json:"attribute"`
	Group     int       `json:"group"`
	Name      localized `json:"name"`
	GroupName localized `json:"groupName"`
}

type productRelationPayload struct {
	Item    int `json:"item"`
	Product int `json:"product"`
	Type    int `json:"type"`
}

type categoryPayload struct {
	ID          int       `json:"id"`
	ParentID    *int      `json:"parentId"`
	Position    int       `json:"position"`
	Name        localized `json:"name"`
	Description localized `json:"description"`
}

type categoryAttributePayload struct {
	CategoryID int `json:"categoryId"`
	GroupID    int `json:"groupId"`
}

type favoritePayload struct {
	ID       int     `json:"id"`
	Customer int     `json:"cu"`
	Address  int     `json:"ad"`
	Buy      int     `json:"buy"`
	Pro      int     `json:"pro"`
	Ret      int     `json:"ret"`
	LastBuy  *string `json:"lastB"`
	LastAmt  int     `json:"lastA"`
	Hidden   bool    `json:"hi"`
}

type pricePayload struct {
	Product    int     `json:"product"`
	Price      float64 `json:"price"`
	PricePromo float64 `json:"pricepromo"`
	Stack      int     `json:"stack"`
	Promo      bool    `json:"promo"`
	Discount   float64 `json:"discount"`
	Customer   int     `json:"customer"`
	Address    int     `json:"address"`
	Group      int     `json:"group"`
}

type productExceptionPayload struct {
	Customer     int    `json:"customer"`
	Address      int    `json:"address"`
	AddressGroup int    `json:"addressGroup"`
	Deny         bool   `json:"deny"`
	List         string `json:"list"`
}

type productTaxPayload struct {
	Product     int     `json:"product"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
}

type shippingCostPayload struct {
	CustomerID int     `json:"customerId"`
	AddressID  int     `json:"addressId"`
	Amount     float64 `json:"amount"`
	Threshold  int     `json:"threshold"`
}

type productDescriptionPayload struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type newsPayload struct {
	ID         int     `json:"id"`
	CustomerID int     `json:"customerId"`
	AddressID  int     `json:"addressId"`
	TitleNl    string  `json:"titleNl"`
	TitleFr    string  `json:"titleFr"`
	ContentNl  string  `json:"contentNl"`
	ContentFr  string  `json:"contentFr"`
	Promo      bool    `json:"promo"`
	Spotlight  bool    `json:"spotlight"`
	Template   int     `json:"template"`
	Date       *string `json:"date"`
}

type reportPayload struct {
	ID        int       `json:"id"`
	Extension int       `json:"extension"`
	Name      localized `json:"name"`
	OnlyAgent bool      `json:"onlyAgent"`
}

// documentPayload covers recipes, datasheets and usage manuals: guid-keyed
// documents with per-language assets and linked product ids, stored as JSON
// strings like the server sends them.
type documentPayload struct {
	GUID      string          `json:"guid"`
	Name      string          `json:"name"`
	Languages json.RawMessage `json:"languages"`
	Products  json.RawMessage `json:"products"`
}

type recipeModulePayload struct {
	ID        int    `json:"id"`
	ProductID int    `json:"productId"`
	NameNl    string `json:"nameNl"`
	NameFr    string `json:"nameFr"`
}

type contactPayload struct {
	ID           int    `json:"id"`
	CustomerID   int    `json:"customerId"`
	AddressID    int    `json:"addressId"`
	FirstName    string `json:"firstName"`
	Name         string `json:"name"`
	MailAddress  string `json:"mailAddress"`
	MobileNr     string `json:"mobileNr"`
	OrdConf      bool   `json:"ordConf"`
	Bonus        bool   `json:"bonus"`
	Invoice      bool   `json:"invoice"`
	Reminder     bool   `json:"reminder"`
	Domicilation bool   `json:"domicilation"`
	ComMailing   bool   `json:"comMailing"`
}

type deliverySchedulePayload struct {
	CustomerID int    `json:"customerId"`
	AddressID  int    `json:"addressId"`
	MonAMFr    string `json:"monAMFr"`
	MonAMTo    string `json:"monAMTo"`
	MonPMFr    string `json:"monPMFr"`
	MonPMTo    string `json:"monPMTo"`
	TueAMFr    string `json:"tueAMFr"`
	TueAMTo    string `json:"tueAMTo"`
	TuePMFr    string `json:"tuePMFr"`
	TuePMTo    string `json:"tuePMTo"`
	WedAMFr    string `json:"wedAMFr"`
	WedAMTo    string `json:"wedAMTo"`
	WedPMFr    string `json:"wedPMFr"`
	WedPMTo    string `json:"wedPMTo"`
	ThuAMFr    string `json:"thuAMFr"`
	ThuAMTo    string `json:"thuAMTo"`
	ThuPMFr    string `json:"thuPMFr"`
	ThuPMTo    string `json:"thuPMTo"`
	FriAMFr    string `json:"friAMFr"`
	FriAMTo    string `json:"friAMTo"`
	FriPMFr    string `json:"friPMFr"`
	FriPMTo    string `json:"friPMTo"`
}

type customerPayload struct {
	ID              int     `json:"id"`
	AddressID       int     `json:"addressId"`
	AddressGroupID  int     `json:"addressGroupId"`
	UserCode        int     `json:"userCode"`
	UserType        int     `json:"userType"`
	Name            string  `json:"name"`
	Address         string  `json:"address"`
	StreetNum       string  `json:"streetNum"`
	ZipCode         string  `json:"zipCode"`
	City            string  `json:"city"`
	Country         string  `json:"country"`
	PhoneNum        string  `json:"phoneNum"`
	VatNum          string  `json:"vatNum"`
	Language        string  `json:"language"`
	Promo           bool    `json:"promo"`
	Fostplus        bool    `json:"fostplus"`
	BonusPercentage float64 `json:"bonusPercentage"`
	AddressName     string  `json:"addressName"`
	DelvAddress     string  `json:"delvAddress"`
	DelvStreetNum   string  `json:"delvStreetNum"`
	DelvZipCode     string  `json:"delvZipCode"`
	DelvCity        string  `json:"delvCity"`
	DelvCountry     string  `json:"delvCountry"`
	DelvPhoneNum    string  `json:"delvPhoneNum"`
	DelvLanguage    string  `json:"delvLanguage"`
}

type notePayload struct {
	Customer int     `json:"customer"`
	Address  int     `json:"address"`
	Date     string  `json:"date"`
	Text     *string `json:"text"`
}

type departmentPayload struct {
	ID       int    `json:"id"`
	UserCode int    `json:"userCode"`
	Alias    string `json:"alias"`
	Products []int  `json:"products"`
}
