package analytics

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// Timestamp is a date accepted as an ISO-8601 string or as milliseconds
// since the Unix epoch.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := domain.ParseTime(s)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return domain.Validation("date must be a string or a number of milliseconds")
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

// Record is a typed shape that becomes a stored document. Only declared
// fields are kept; unset optional fields are omitted.
type Record interface {
	ToDocument() domain.Document
}

// Shape binds a record type to the collection it is stored in.
type Shape struct {
	Name       string
	Collection string
	New        func() Record
}

// Shapes lists the record shapes of the report collections.
var Shapes = []Shape{
	{Name: "product", Collection: ProductsCollection, New: func() Record { return &Product{} }},
	{Name: "user", Collection: UsersCollection, New: func() Record { return &User{} }},
	{Name: "movie", Collection: MoviesCollection, New: func() Record { return &Movie{} }},
	{Name: "order", Collection: OrdersCollection, New: func() Record { return &Order{} }},
	{Name: "order5", Collection: Order5sCollection, New: func() Record { return &Order5{} }},
	{Name: "event", Collection: EventsCollection, New: func() Record { return &Event{} }},
	{Name: "sale", Collection: SalesCollection, New: func() Record { return &Sale{} }},
}

// ShapeFor returns the shape stored in a collection.
func ShapeFor(collection string) (Shape, bool) {
	for _, s := range Shapes {
		if s.Collection == collection {
			return s, true
		}
	}
	return Shape{}, false
}

// DecodeRecord parses a JSON body into the shape's record and validates it.
func DecodeRecord(shape Shape, data []byte) (Record, error) {
	record := shape.New()
	if err := json.Unmarshal(data, record); err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) {
			return nil, derr
		}
		return nil, domain.Validation("invalid %s: %v", shape.Name, err)
	}
	if err := Validate(record); err != nil {
		return nil, err
	}
	return record, nil
}

// Product is a product sale line. Name is the display name the sales
// revenue report joins on.
type Product struct {
	ID       string     `json:"_id,omitempty"`
	Product  string     `json:"product" validate:"max=200"`
	Name     string     `json:"name" validate:"max=200"`
	Price    *float64   `json:"price" validate:"omitempty,gte=0"`
	Quantity *float64   `json:"quantity" validate:"omitempty,gte=0"`
	Date     *Timestamp `json:"date"`
}

func (p *Product) ToDocument() domain.Document {
	doc := domain.Document{}
	setID(doc, p.ID)
	setString(doc, "product", p.Product)
	setString(doc, "name", p.Name)
	setNumber(doc, "price", p.Price)
	setNumber(doc, "quantity", p.Quantity)
	setTime(doc, "date", p.Date)
	return doc
}

// Post is an entry of a user's post list.
type Post struct {
	Text string     `json:"text"`
	Date *Timestamp `json:"date"`
}

type User struct {
	ID      string   `json:"_id,omitempty"`
	Name    string   `json:"name" validate:"max=200"`
	Age     *float64 `json:"age" validate:"omitempty,gte=0"`
	Gender  string   `json:"gender"`
	Friends []string `json:"friends"`
	Posts   []Post   `json:"posts" validate:"dive"`
}

func (u *User) ToDocument() domain.Document {
	doc := domain.Document{}
	setID(doc, u.ID)
	setString(doc, "name", u.Name)
	setNumber(doc, "age", u.Age)
	setString(doc, "gender", u.Gender)
	friends := make([]interface{}, len(u.Friends))
	for i, f := range u.Friends {
		friends[i] = f
	}
	doc["friends"] = friends
	posts := make([]interface{}, len(u.Posts))
	for i, p := range u.Posts {
		post := domain.Document{}
		setString(post, "text", p.Text)
		setTime(post, "date", p.Date)
		posts[i] = post
	}
	doc["posts"] = posts
	return doc
}

// Rating is one user's score of a movie.
type Rating struct {
	User  string   `json:"user"`
	Score *float64 `json:"score" validate:"omitempty,gte=0"`
}

type Movie struct {
	ID          string   `json:"_id,omitempty"`
	Title       string   `json:"title" validate:"max=500"`
	ReleaseYear *float64 `json:"release_year"`
	Genre       string   `json:"genre"`
	Director    string   `json:"director"`
	Actors      []string `json:"actors"`
	Ratings     []Rating `json:"ratings" validate:"dive"`
}

func (m *Movie) ToDocument() domain.Document {
	doc := domain.Document{}
	setID(doc, m.ID)
	setString(doc, "title", m.Title)
	setNumber(doc, "release_year", m.ReleaseYear)
	setString(doc, "genre", m.Genre)
	setString(doc, "director", m.Director)
	actors := make([]interface{}, len(m.Actors))
	for i, a := range m.Actors {
		actors[i] = a
	}
	doc["actors"] = actors
	ratings := make([]interface{}, len(m.Ratings))
	for i, r := range m.Ratings {
		rating := domain.Document{}
		setString(rating, "user", r.User)
		setNumber(rating, "score", r.Score)
		ratings[i] = rating
	}
	doc["ratings"] = ratings
	return doc
}

type Order struct {
	ID         string     `json:"_id,omitempty"`
	OrderID    string     `json:"order_id"`
	CustomerID string     `json:"customer_id"`
	Product    string     `json:"product"`
	Price      *float64   `json:"price" validate:"omitempty,gte=0"`
	Quantity   *float64   `json:"quantity" validate:"omitempty,gte=0"`
	Date       *Timestamp `json:"date"`
}

func (o *Order) ToDocument() domain.Document {
	doc := domain.Document{}
	setID(doc, o.ID)
	setString(doc, "order_id", o.OrderID)
	setString(doc, "customer_id", o.CustomerID)
	setString(doc, "product", o.Product)
	setNumber(doc, "price", o.Price)
	setNumber(doc, "quantity", o.Quantity)
	setTime(doc, "date", o.Date)
	return doc
}

// Order5 is an order reduced to its total, used by the date-range report.
type Order5 struct {
	ID          string     `json:"_id,omitempty"`
	OrderID     string     `json:"order_id"`
	CustomerID  string     `json:"customer_id"`
	TotalAmount *float64   `json:"total_amount" validate:"omitempty,gte=0"`
	OrderDate   *Timestamp `json:"order_date"`
}

func (o *Order5) ToDocument() domain.Document {
	doc := domain.Document{}
	setID(doc, o.ID)
	setString(doc, "order_id", o.OrderID)
	setString(doc, "customer_id", o.CustomerID)
	setNumber(doc, "total_amount", o.TotalAmount)
	setTime(doc, "order_date", o.OrderDate)
	return doc
}

type Event struct {
	ID        string     `json:"_id,omitempty"`
	EventDate *Timestamp `json:"event_date" validate:"required"`
	UserID    string     `json:"user_id" validate:"required"`
	EventType string     `json:"event_type" validate:"required"`
}

func (e *Event) ToDocument() domain.Document {
	doc := domain.Document{}
	setID(doc, e.ID)
	setTime(doc, "event_date", e.EventDate)
	setString(doc, "user_id", e.UserID)
	setString(doc, "event_type", e.EventType)
	return doc
}

type Sale struct {
	ID        string     `json:"_id,omitempty"`
	SaleDate  *Timestamp `json:"sale_date" validate:"required"`
	ProductID string     `json:"product_id" validate:"required"`
	Quantity  *float64   `json:"quantity" validate:"required,gt=0"`
	Price     *float64   `json:"price" validate:"required,gt=0"`
}

func (s *Sale) ToDocument() domain.Document {
	doc := domain.Document{}
	setID(doc, s.ID)
	setTime(doc, "sale_date", s.SaleDate)
	setString(doc, "product_id", s.ProductID)
	setNumber(doc, "quantity", s.Quantity)
	setNumber(doc, "price", s.Price)
	return doc
}

func setID(doc domain.Document, id string) {
	if id != "" {
		doc["_id"] = id
	}
}

func setString(doc domain.Document, field, value string) {
	if value != "" {
		doc[field] = value
	}
}

// setNumber stores whole numbers as int64 so that sums over them stay
// integral.
func setNumber(doc domain.Document, field string, value *float64) {
	if value == nil {
		return
	}
	f := *value
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		doc[field] = int64(f)
		return
	}
	doc[field] = f
}

func setTime(doc domain.Document, field string, value *Timestamp) {
	if value != nil && !value.IsZero() {
		doc[field] = value.Time.UTC()
	}
}
