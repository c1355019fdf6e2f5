package sync

import (
	"encoding/json"
	"fmt"

	"github.com/mobiorder/mobiorder/internal/store"
)

// Domain is one checksummed replication unit: a group of tables that are
// always dropped and recreated together from a single server payload.
type Domain struct {
	// Name keys the dataIntegrityChecksums row.
	Name string
	// Path is the API endpoint relative to the base URL.
	Path string
	// Wave orders the write pressure against the local store; see FullSync.
	Wave int

	decode func(raw json.RawMessage) (*payloadBatch, error)
}

// payloadBatch is a decoded domain payload ready to be applied: the DDL that
// rebuilds the domain's tables, the row inserts, and the new checksum.
type payloadBatch struct {
	ddl      []string
	inserts  []store.Statement
	rows     int
	checksum string
}

func ins(sql string, args ...any) store.Statement {
	return store.Statement{SQL: sql, Args: args}
}

// nullable maps an empty string to NULL, matching how the previous client
// stored absent localized text.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Domains lists every synced domain in wave order. Departments run in their
// own wave (5) because the department-product links reference product ids
// that wave 1 has to land first.
func Domains() []Domain {
	return []Domain{
		// Wave 1: core catalog.
		{Name: "products", Path: "app/products", Wave: 1, decode: decodeProducts},
		{Name: "packingUnits", Path: "app/packing-units", Wave: 1, decode: decodePackingUnits},
		{Name: "attributes", Path: "app/attributes", Wave: 1, decode: decodeAttributes},
		{Name: "productRelations", Path: "app/product-relations", Wave: 1, decode: decodeProductRelations},
		{Name: "categories", Path: "app/categories", Wave: 1, decode: decodeCategories},
		{Name: "categoryAttributes", Path: "app/category-attributes", Wave: 1, decode: decodeCategoryAttributes},

		// Wave 2: customer-coupled catalog data.
		{Name: "favorites", Path: "app/favorites", Wave: 2, decode: decodeFavorites},
		{Name: "prices", Path: "app/prices", Wave: 2, decode: decodePrices},
		{Name: "productExceptions", Path: "app/product-exceptions", Wave: 2, decode: decodeProductExceptions},
		{Name: "productTaxes", Path: "app/productTaxes", Wave: 2, decode: decodeProductTaxes},
		{Name: "shippingCosts", Path: "app/shippingCosts", Wave: 2, decode: decodeShippingCosts},
		{Name: "productDescriptionCustomers", Path: "app/product-description-customers", Wave: 2, decode: decodeProductDescriptions},
		{Name: "news", Path: "app/news", Wave: 2, decode: decodeNews},

		// Wave 3: documents.
		{Name: "reports", Path: "app/reports", Wave: 3, decode: decodeReports},
		{Name: "recipes", Path: "app/recipes", Wave: 3, decode: decodeDocuments("recipes", "recipes")},
		{Name: "datasheets", Path: "app/datasheets", Wave: 3, decode: decodeDocuments("datasheets", "datasheets")},
		{Name: "usageManuals", Path: "app/usage-manuals", Wave: 3, decode: decodeDocuments("usageManuals", "usageManuals")},
		{Name: "recipesModule", Path: "app/recipes-module", Wave: 3, decode: decodeRecipesModule},

		// Wave 4: customer master data.
		{Name: "contacts", Path: "app/contacts", Wave: 4, decode: decodeContacts},
		{Name: "deliverySchedules", Path: "app/delivery-schedules", Wave: 4, decode: decodeDeliverySchedules},
		{Name: "customers", Path: "app/customers", Wave: 4, decode: decodeCustomers},
		{Name: "notes", Path: "app/notes", Wave: 4, decode: decodeNotes},

		// Wave 5: depends on product ids being present.
		{Name: "departments", Path: "app/departments", Wave: 5, decode: decodeDepartments},
	}
}

func decodeProducts(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		Products    []productPayload `json:"products"`
		ChecksumSha string           `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed products payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS products",
			"DROP TABLE IF EXISTS productTexts",
			"DROP TABLE IF EXISTS productAttributes",
			"DROP TABLE IF EXISTS productAllergens",
			`CREATE TABLE IF NOT EXISTS products (id INTEGER PRIMARY KEY, groupId INTEGER, packId INTEGER,
				itemnum TEXT, nameNl TEXT, nameFr TEXT, type TEXT, isNew BOOLEAN,
				c1 INTEGER, c2 INTEGER, c3 INTEGER, c4 INTEGER, c5 INTEGER, c6 INTEGER,
				stackSize INTEGER, minOrder INTEGER, deliverTime INTEGER, ean TEXT,
				supplierItemIdentifier TEXT, relativeQuantity INTEGER, queryWordsNl TEXT,
				queryWordsFr TEXT, sortOrder INTEGER, availableOn DATETIME NULL,
				contentQuantity INTEGER NULL, contentUnit INTEGER NULL, url TEXT, color TEXT NULL)`,
			`CREATE TABLE IF NOT EXISTS productTexts (id INTEGER PRIMARY KEY, descriptionNl TEXT,
				descriptionFr TEXT, groupNameNl TEXT, groupNameFr TEXT, promoNl TEXT, promoFr TEXT)`,
			`CREATE TABLE IF NOT EXISTS productAttributes (attribute INTEGER, product INTEGER,
				PRIMARY KEY (attribute, product))`,
			`CREATE TABLE IF NOT EXISTS productAllergens (product INTEGER, code TEXT, value TEXT,
				PRIMARY KEY (product, code))`,
			"CREATE INDEX IF NOT EXISTS products_category_ids ON products (c1, c2, c3, c4, c5, c6)",
			"CREATE INDEX IF NOT EXISTS products_itemnum ON products (id, itemnum)",
		},
		rows:     len(resp.Products),
		checksum: resp.ChecksumSha,
	}

	for _, p := range resp.Products {
		b.inserts = append(b.inserts,
			ins(`INSERT INTO products VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				p.ID, p.GroupID, p.PackID, p.ItemNum, nullable(p.Name.Nl), nullable(p.Name.Fr),
				p.Type, p.IsNew, p.C1, p.C2, p.C3, p.C4, p.C5, p.C6,
				p.StackSize, p.MinOrder, p.DeliverTime, p.EAN, nullable(p.SupplierItemIdentifier),
				p.RelativeQuantity, nullable(p.QueryWordsNl), nullable(p.QueryWordsFr), p.SortOrder,
				p.AvailableOn, p.ContentQuantity, p.ContentUnit, p.URL, p.Color),
			ins(`INSERT INTO productTexts VALUES (?, ?, ?, ?, ?, ?, ?)`,
				p.ID, nullable(p.Description.Nl), nullable(p.Description.Fr),
				nullable(p.GroupName.Nl), nullable(p.GroupName.Fr),
				nullable(p.PromoText.Nl), nullable(p.PromoText.Fr)))
		for _, attr := range p.Attributes {
			b.inserts = append(b.inserts,
				ins("INSERT INTO productAttributes VALUES (?, ?)", attr, p.ID))
		}
		for _, al := range p.Allergens {
			b.inserts = append(b.inserts,
				ins("INSERT INTO productAllergens VALUES (?, ?, ?)", p.ID, al.Code, al.Value))
		}
	}
	return b, nil
}

func decodePackingUnits(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		PackingUnits []packingUnitPayload `json:"packingUnits"`
		ChecksumSha  string               `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed packingUnits payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS packingUnits",
			"CREATE TABLE IF NOT EXISTS packingUnits (id INTEGER PRIMARY KEY, nameNl TEXT, nameFr TEXT)",
		},
		rows:     len(resp.PackingUnits),
		checksum: resp.ChecksumSha,
	}
	for _, u := range resp.PackingUnits {
		b.inserts = append(b.inserts,
			ins("INSERT INTO packingUnits VALUES (?, ?, ?)", u.ID, nullable(u.Name.Nl), nullable(u.Name.Fr)))
	}
	return b, nil
}

func decodeAttributes(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		Attributes  []attributePayload `json:"attributes"`
		ChecksumSha string             `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed attributes payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS attributes",
			`CREATE TABLE IF NOT EXISTS attributes (id INTEGER PRIMARY KEY, attribute INTEGER,
				[group] INTEGER, nameNl TEXT, nameFr TEXT, groupNameNl TEXT, groupNameFr TEXT)`,
		},
		rows:     len(resp.Attributes),
		checksum: resp.ChecksumSha,
	}
	for _, a := range resp.Attributes {
		b.inserts = append(b.inserts,
			ins("INSERT INTO attributes VALUES (?, ?, ?, ?, ?, ?, ?)",
				a.ID, a.Attribute, a.Group, nullable(a.Name.Nl), nullable(a.Name.Fr),
				nullable(a.GroupName.Nl), nullable(a.GroupName.Fr)))
	}
	return b, nil
}

func decodeProductRelations(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		ProductRelations []productRelationPayload `json:"productRelations"`
		ChecksumSha      string                   `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed productRelations payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS productRelations",
			`CREATE TABLE IF NOT EXISTS productRelations (item INTEGER, product INTEGER, type INTEGER,
				PRIMARY KEY (item, product, type))`,
		},
		rows:     len(resp.ProductRelations),
		checksum: resp.ChecksumSha,
	}
	for _, r := range resp.ProductRelations {
		b.inserts = append(b.inserts,
			ins("INSERT INTO productRelations VALUES (?, ?, ?)", r.Item, r.Product, r.Type))
	}
	return b, nil
}

func decodeCategories(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		Categories  []categoryPayload `json:"categories"`
		ChecksumSha string            `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed categories payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS categories",
			`CREATE TABLE IF NOT EXISTS categories (id INTEGER PRIMARY KEY, parentId INTEGER NULL,
				position INTEGER, nameNl TEXT, nameFr TEXT, descriptionNl TEXT, descriptionFr TEXT)`,
		},
		rows:     len(resp.Categories),
		checksum: resp.ChecksumSha,
	}
	for _, c := range resp.Categories {
		b.inserts = append(b.inserts,
			ins("INSERT INTO categories VALUES (?, ?, ?, ?, ?, ?, ?)",
				c.ID, c.ParentID, c.Position, nullable(c.Name.Nl), nullable(c.Name.Fr),
				nullable(c.Description.Nl), nullable(c.Description.Fr)))
	}
	return b, nil
}

func decodeCategoryAttributes(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		CategoryAttributes []categoryAttributePayload `json:"categoryAttributes"`
		ChecksumSha        string                     `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed categoryAttributes payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS categoryAttributes",
			`CREATE TABLE IF NOT EXISTS categoryAttributes (categoryId INTEGER, groupId INTEGER,
				PRIMARY KEY (categoryId, groupId))`,
		},
		rows:     len(resp.CategoryAttributes),
		checksum: resp.ChecksumSha,
	}
	for _, ca := range resp.CategoryAttributes {
		b.inserts = append(b.inserts,
			ins("INSERT INTO categoryAttributes VALUES (?, ?)", ca.CategoryID, ca.GroupID))
	}
	return b, nil
}

func decodeFavorites(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		Favorites   []favoritePayload `json:"favorites"`
		ChecksumSha string            `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed favorites payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS favorites",
			`CREATE TABLE IF NOT EXISTS favorites (id INTEGER, cu INTEGER, ad INTEGER, buy INTEGER,
				pro INTEGER, ret INTEGER, lastB DATETIME, lastA INTEGER, hi BOOLEAN,
				PRIMARY KEY (id, cu, ad))`,
		},
		rows:     len(resp.Favorites),
		checksum: resp.ChecksumSha,
	}
	for _, f := range resp.Favorites {
		// INSERT OR IGNORE: the server occasionally repeats a favorite across
		// address rows and the first one wins.
		b.inserts = append(b.inserts,
			ins("INSERT OR IGNORE INTO favorites VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
				f.ID, f.Customer, f.Address, f.Buy, f.Pro, f.Ret, f.LastBuy, f.LastAmt, f.Hidden))
	}
	return b, nil
}

func decodePrices(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		Prices      []pricePayload `json:"prices"`
		ChecksumSha string         `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed prices payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS prices",
			`CREATE TABLE IF NOT EXISTS prices (product INTEGER, price REAL, pricepromo REAL,
				stack INTEGER, promo BOOLEAN, discount REAL, customer INTEGER, address INTEGER,
				[group] INTEGER, PRIMARY KEY (product, customer, address, [group], stack))`,
		},
		rows:     len(resp.Prices),
		checksum: resp.ChecksumSha,
	}
	for _, p := range resp.Prices {
		b.inserts = append(b.inserts,
			ins("INSERT INTO prices VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
				p.Product, p.Price, p.PricePromo, p.Stack, p.Promo, p.Discount,
				p.Customer, p.Address, p.Group))
	}
	return b, nil
}

func decodeProductExceptions(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		ProductExceptions []productExceptionPayload `json:"productExceptions"`
		ChecksumSha       string                    `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed productExceptions payload: %w", err)
	}

	// currentExceptions is deliberately left alone here: the visibility
	// resolver rebuilds it on the next customer selection, so a reader never
	// sees an empty visibility set mid-sync.
	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS productExceptions",
			`CREATE TABLE IF NOT EXISTS productExceptions (customer INTEGER, address INTEGER,
				addressGroup INTEGER, deny BOOLEAN, list TEXT)`,
		},
		rows:     len(resp.ProductExceptions),
		checksum: resp.ChecksumSha,
	}
	for _, e := range resp.ProductExceptions {
		b.inserts = append(b.inserts,
			ins("INSERT INTO productExceptions VALUES (?, ?, ?, ?, ?)",
				e.Customer, e.Address, e.AddressGroup, e.Deny, e.List))
	}
	return b, nil
}

func decodeProductTaxes(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		ProductTaxes []productTaxPayload `json:"productTaxes"`
		ChecksumSha  string              `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed productTaxes payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS productTaxes",
			`CREATE TABLE IF NOT EXISTS productTaxes (product INTEGER, description TEXT,
				amount REAL, type TEXT)`,
		},
		rows:     len(resp.ProductTaxes),
		checksum: resp.ChecksumSha,
	}
	for _, t := range resp.ProductTaxes {
		b.inserts = append(b.inserts,
			ins("INSERT INTO productTaxes VALUES (?, ?, ?, ?)",
				t.Product, t.Description, t.Amount, t.Type))
	}
	return b, nil
}

func decodeShippingCosts(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		ShippingCosts []shippingCostPayload `json:"shippingCosts"`
		ChecksumSha   string                `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed shippingCosts payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS shippingCosts",
			`CREATE TABLE IF NOT EXISTS shippingCosts (customerId INTEGER, addressId INTEGER,
				amount REAL, threshold INTEGER)`,
		},
		rows:     len(resp.ShippingCosts),
		checksum: resp.ChecksumSha,
	}
	for _, sc := range resp.ShippingCosts {
		b.inserts = append(b.inserts,
			ins("INSERT INTO shippingCosts VALUES (?, ?, ?, ?)",
				sc.CustomerID, sc.AddressID, sc.Amount, sc.Threshold))
	}
	return b, nil
}

func decodeProductDescriptions(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		ProductDescriptionCustomers []productDescriptionPayload `json:"productDescriptionCustomers"`
		ChecksumSha                 string                      `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed productDescriptionCustomers payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS productDescriptionCustomers",
			"CREATE TABLE IF NOT EXISTS productDescriptionCustomers (id INTEGER PRIMARY KEY, description TEXT)",
		},
		rows:     len(resp.ProductDescriptionCustomers),
		checksum: resp.ChecksumSha,
	}
	for _, d := range resp.ProductDescriptionCustomers {
		b.inserts = append(b.inserts,
			ins("INSERT INTO productDescriptionCustomers VALUES (?, ?)", d.ID, d.Description))
	}
	return b, nil
}

func decodeNews(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		News        []newsPayload `json:"news"`
		ChecksumSha string        `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed news payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS news",
			`CREATE TABLE IF NOT EXISTS news (id INTEGER PRIMARY KEY, customerId INTEGER,
				addressId INTEGER, titleNl TEXT, titleFr TEXT, contentNl BLOB, contentFr BLOB,
				promo BOOLEAN, spotlight BOOLEAN, template TINYINT, date DATETIME)`,
		},
		rows:     len(resp.News),
		checksum: resp.ChecksumSha,
	}
	for _, n := range resp.News {
		b.inserts = append(b.inserts,
			ins("INSERT INTO news VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
				n.ID, n.CustomerID, n.AddressID, nullable(n.TitleNl), nullable(n.TitleFr),
				n.ContentNl, n.ContentFr, n.Promo, n.Spotlight, n.Template, n.Date))
	}
	return b, nil
}

func decodeReports(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		Reports     []reportPayload `json:"reports"`
		ChecksumSha string          `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed reports payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS reports",
			`CREATE TABLE IF NOT EXISTS reports (id INTEGER PRIMARY KEY, extension INTEGER,
				nameNl TEXT, nameFr TEXT, onlyAgent BOOLEAN)`,
		},
		rows:     len(resp.Reports),
		checksum: resp.ChecksumSha,
	}
	for _, r := range resp.Reports {
		b.inserts = append(b.inserts,
			ins("INSERT INTO reports VALUES (?, ?, ?, ?, ?)",
				r.ID, r.Extension, nullable(r.Name.Nl), nullable(r.Name.Fr), r.OnlyAgent))
	}
	return b, nil
}

// decodeDocuments builds the decoder for the three guid-keyed document
// domains (recipes, datasheets, usage manuals), which share one shape.
func decodeDocuments(table, field string) func(json.RawMessage) (*payloadBatch, error) {
	return func(raw json.RawMessage) (*payloadBatch, error) {
		var resp map[string]json.RawMessage
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", table, err)
		}

		var docs []documentPayload
		if rows, ok := resp[field]; ok {
			if err := json.Unmarshal(rows, &docs); err != nil {
				return nil, fmt.Errorf("malformed %s rows: %w", table, err)
			}
		}
		var checksum string
		if cs, ok := resp["checksumSha"]; ok {
			if err := json.Unmarshal(cs, &checksum); err != nil {
				return nil, fmt.Errorf("malformed %s checksum: %w", table, err)
			}
		}

		b := &payloadBatch{
			ddl: []string{
				"DROP TABLE IF EXISTS " + table,
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (guid TEXT PRIMARY KEY, name TEXT,
					languages TEXT, products TEXT)`, table),
			},
			rows:     len(docs),
			checksum: checksum,
		}
		for _, d := range docs {
			b.inserts = append(b.inserts,
				ins(fmt.Sprintf("INSERT INTO %s VALUES (?, ?, ?, ?)", table),
					d.GUID, d.Name, string(d.Languages), string(d.Products)))
		}
		return b, nil
	}
}

func decodeRecipesModule(raw json.RawMessage) (*payloadBatch, error) {
	// The recipes-module endpoint reuses the "recipes" envelope field.
	var resp struct {
		Recipes     []recipeModulePayload `json:"recipes"`
		ChecksumSha string                `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed recipesModule payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS recipesModule",
			`CREATE TABLE IF NOT EXISTS recipesModule (id INTEGER, productId INTEGER,
				nameNl TEXT, nameFr TEXT, PRIMARY KEY (id, productId))`,
		},
		rows:     len(resp.Recipes),
		checksum: resp.ChecksumSha,
	}
	for _, r := range resp.Recipes {
		b.inserts = append(b.inserts,
			ins("INSERT INTO recipesModule VALUES (?, ?, ?, ?)",
				r.ID, r.ProductID, nullable(r.NameNl), nullable(r.NameFr)))
	}
	return b, nil
}

func decodeContacts(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		Contacts    []contactPayload `json:"contacts"`
		ChecksumSha string           `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed contacts payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS contacts",
			`CREATE TABLE IF NOT EXISTS contacts (id INTEGER, customerId INTEGER, addressId INTEGER,
				firstName TEXT, name TEXT, mailAddress TEXT, mobileNr TEXT, ordConf BOOLEAN,
				bonus BOOLEAN, invoice BOOLEAN, reminder BOOLEAN, domicilation BOOLEAN,
				comMailing BOOLEAN, PRIMARY KEY (id, customerId, addressId))`,
		},
		rows:     len(resp.Contacts),
		checksum: resp.ChecksumSha,
	}
	for _, c := range resp.Contacts {
		b.inserts = append(b.inserts,
			ins("INSERT INTO contacts VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
				c.ID, c.CustomerID, c.AddressID, c.FirstName, c.Name, c.MailAddress, c.MobileNr,
				c.OrdConf, c.Bonus, c.Invoice, c.Reminder, c.Domicilation, c.ComMailing))
	}
	return b, nil
}

func decodeDeliverySchedules(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		DeliverySchedules []deliverySchedulePayload `json:"deliverySchedules"`
		ChecksumSha       string                    `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed deliverySchedules payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS deliverySchedules",
			`CREATE TABLE IF NOT EXISTS deliverySchedules (customerId INTEGER, addressId INTEGER,
				monAMFr TEXT, monAMTo TEXT, monPMFr TEXT, monPMTo TEXT,
				tueAMFr TEXT, tueAMTo TEXT, tuePMFr TEXT, tuePMTo TEXT,
				wedAMFr TEXT, wedAMTo TEXT, wedPMFr TEXT, wedPMTo TEXT,
				thuAMFr TEXT, thuAMTo TEXT, thuPMFr TEXT, thuPMTo TEXT,
				friAMFr TEXT, friAMTo TEXT, friPMFr TEXT, friPMTo TEXT,
				PRIMARY KEY (customerId, addressId))`,
		},
		rows:     len(resp.DeliverySchedules),
		checksum: resp.ChecksumSha,
	}
	for _, d := range resp.DeliverySchedules {
		b.inserts = append(b.inserts,
			ins(`INSERT INTO deliverySchedules VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				d.CustomerID, d.AddressID,
				d.MonAMFr, d.MonAMTo, d.MonPMFr, d.MonPMTo,
				d.TueAMFr, d.TueAMTo, d.TuePMFr, d.TuePMTo,
				d.WedAMFr, d.WedAMTo, d.WedPMFr, d.WedPMTo,
				d.ThuAMFr, d.ThuAMTo, d.ThuPMFr, d.ThuPMTo,
				d.FriAMFr, d.FriAMTo, d.FriPMFr, d.FriPMTo))
	}
	return b, nil
}

func decodeCustomers(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		Customers   []customerPayload `json:"customers"`
		ChecksumSha string            `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed customers payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS customers",
			customersDDL,
		},
		rows:     len(resp.Customers),
		checksum: resp.ChecksumSha,
	}
	for _, c := range resp.Customers {
		b.inserts = append(b.inserts,
			ins(`INSERT INTO customers VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				c.ID, c.AddressID, c.AddressGroupID, c.UserCode, c.UserType, c.Name, c.Address,
				c.StreetNum, c.ZipCode, c.City, c.Country, c.PhoneNum, c.VatNum, c.Language,
				c.Promo, c.Fostplus, c.BonusPercentage, c.AddressName, c.DelvAddress,
				c.DelvStreetNum, c.DelvZipCode, c.DelvCity, c.DelvCountry, c.DelvPhoneNum,
				c.DelvLanguage))
	}
	return b, nil
}

// customersDDL is shared with the post-sync bootstrap, which creates an empty
// customers table when a first sync never delivered one.
const customersDDL = `CREATE TABLE IF NOT EXISTS customers (id INTEGER, addressId INTEGER,
	addressGroupId INTEGER, userCode INTEGER, userType INTEGER, name TEXT, address TEXT,
	streetNum TEXT, zipCode TEXT, city TEXT, country TEXT, phoneNum TEXT, vatNum TEXT,
	language TEXT, promo BOOLEAN, fostplus BOOLEAN, bonusPercentage REAL, addressName TEXT,
	delvAddress TEXT, delvStreetNum TEXT, delvZipCode TEXT, delvCity TEXT, delvCountry TEXT,
	delvPhoneNum TEXT, delvLanguage TEXT, PRIMARY KEY (id, addressId))`

func decodeNotes(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		Notes       []notePayload `json:"notes"`
		ChecksumSha string        `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed notes payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS notes",
			`CREATE TABLE IF NOT EXISTS notes (customer INTEGER, address INTEGER,
				date DATETIME, text TEXT NULL)`,
		},
		rows:     len(resp.Notes),
		checksum: resp.ChecksumSha,
	}
	for _, n := range resp.Notes {
		b.inserts = append(b.inserts,
			ins("INSERT INTO notes VALUES (?, ?, ?, ?)", n.Customer, n.Address, n.Date, n.Text))
	}
	return b, nil
}

func decodeDepartments(raw json.RawMessage) (*payloadBatch, error) {
	var resp struct {
		Departments []departmentPayload `json:"departments"`
		ChecksumSha string              `json:"checksumSha"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed departments payload: %w", err)
	}

	b := &payloadBatch{
		ddl: []string{
			"DROP TABLE IF EXISTS departments",
			"DROP TABLE IF EXISTS departmentProducts",
			"CREATE TABLE IF NOT EXISTS departments (id INTEGER PRIMARY KEY, userCode INTEGER, alias TEXT)",
			`CREATE TABLE IF NOT EXISTS departmentProducts (department INTEGER, product INTEGER,
				PRIMARY KEY (department, product))`,
		},
		rows:     len(resp.Departments),
		checksum: resp.ChecksumSha,
	}
	for _, d := range resp.Departments {
		b.inserts = append(b.inserts,
			ins("INSERT INTO departments VALUES (?, ?, ?)", d.ID, d.UserCode, d.Alias))
		for _, p := range d.Products {
			b.inserts = append(b.inserts,
				ins("INSERT INTO departmentProducts VALUES (?, ?)", d.ID, p))
		}
	}
	return b, nil
}
