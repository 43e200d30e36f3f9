package handler

import (
	"github.com/go-faster/jx"

	"github.com/xenking/gamestore/internal/domain/admin"
	"github.com/xenking/gamestore/internal/domain/auth"
	"github.com/xenking/gamestore/internal/domain/billing"
	"github.com/xenking/gamestore/internal/domain/cart"
	"github.com/xenking/gamestore/internal/domain/catalog"
	"github.com/xenking/gamestore/internal/domain/coupon"
	"github.com/xenking/gamestore/internal/domain/library"
	"github.com/xenking/gamestore/internal/domain/order"
	"github.com/xenking/gamestore/internal/domain/payment"
	"github.com/xenking/gamestore/internal/domain/wishlist"
)

func encodeUser(e *jx.Encoder, u auth.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(u.ID)
	e.FieldStart("email")
	e.Str(u.Email)
	e.FieldStart("username")
	e.Str(u.Username)
	e.FieldStart("role")
	e.Str(string(u.Role))
	optStr(e, "display_name", u.DisplayName)
	timestamp(e, "created_at", u.CreatedAt)
	e.ObjEnd()
}

func encodeGame(e *jx.Encoder, g catalog.Game) {
	e.ObjStart()
	e.FieldStart("app_id")
	e.Int64(g.AppID)
	e.FieldStart("name")
	e.Str(g.Name)
	money(e, "price_final", g.PriceFinal)
	money(e, "price_org", g.PriceOrg)
	e.FieldStart("discount_percent")
	e.Int(g.DiscountPercent)
	e.FieldStart("price_currency")
	e.Str(g.Currency)
	names(e, "genres", g.Genres)
	names(e, "categories", g.Categories)
	timestamp(e, "created_at", g.CreatedAt)
	timestamp(e, "updated_at", g.UpdatedAt)
	e.ObjEnd()
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range c.Items {
		e.ObjStart()
		e.FieldStart("app_id")
		e.Int64(it.AppID)
		e.FieldStart("name")
		e.Str(it.Name)
		money(e, "price_final", it.PriceFinal)
		timestamp(e, "added_at", it.AddedAt)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("count")
	e.Int(len(c.Items))
	money(e, "subtotal", c.Subtotal)
}

func encodeWishlistItem(e *jx.Encoder, it wishlist.Item) {
	e.ObjStart()
	e.FieldStart("app_id")
	e.Int64(it.AppID)
	e.FieldStart("name")
	e.Str(it.Name)
	money(e, "price_final", it.PriceFinal)
	e.FieldStart("discount_percent")
	e.Int(it.DiscountPercent)
	timestamp(e, "added_at", it.AddedAt)
	e.ObjEnd()
}

func encodeAddress(e *jx.Encoder, a billing.Address) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(a.ID)
	e.FieldStart("full_name")
	e.Str(a.FullName)
	e.FieldStart("line1")
	e.Str(a.Line1)
	optStr(e, "line2", a.Line2)
	e.FieldStart("city")
	e.Str(a.City)
	e.FieldStart("postal_code")
	e.Str(a.PostalCode)
	e.FieldStart("country")
	e.Str(a.Country)
	timestamp(e, "created_at", a.CreatedAt)
	e.ObjEnd()
}

func encodeCoupon(e *jx.Encoder, c coupon.Coupon) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(c.ID)
	e.FieldStart("code")
	e.Str(c.Code)
	e.FieldStart("discount_type")
	e.Str(string(c.DiscountType))
	e.FieldStart("value")
	e.Str(c.Value.String())
	timestamp(e, "created_at", c.CreatedAt)
	e.ObjEnd()
}

func encodeEvaluation(e *jx.Encoder, ev coupon.Evaluation) {
	e.FieldStart("valid")
	e.Bool(ev.Valid)
	money(e, "discount", ev.Discount)
	optStr(e, "reason", string(ev.Reason))
	e.FieldStart("coupon")
	if ev.Coupon == nil {
		e.Null()
		return
	}
	e.ObjStart()
	e.FieldStart("code")
	e.Str(ev.Coupon.Code)
	e.FieldStart("discount_type")
	e.Str(string(ev.Coupon.DiscountType))
	e.FieldStart("value")
	e.Str(ev.Coupon.Value.String())
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("user_id")
	e.Int64(o.UserID)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("app_id")
		e.Int64(it.AppID)
		e.FieldStart("name")
		e.Str(it.Name)
		money(e, "price_final", it.PriceFinal)
		e.ObjEnd()
	}
	e.ArrEnd()
	money(e, "subtotal", o.Subtotal)
	money(e, "discount_amount", o.DiscountAmount)
	optStr(e, "discount_code", o.DiscountCode)
	money(e, "total_price", o.TotalPrice)
	e.FieldStart("order_status")
	e.Str(string(o.Status))
	optInt64(e, "billing_address_id", o.BillingAddressID)
	timestamp(e, "created_at", o.CreatedAt)
	timestamp(e, "updated_at", o.UpdatedAt)
	e.ObjEnd()
}

func paymentFields(e *jx.Encoder, p payment.Payment) {
	e.FieldStart("id")
	e.Int64(p.ID)
	e.FieldStart("order_id")
	e.Int64(p.OrderID)
	e.FieldStart("payment_method_id")
	e.Int64(p.MethodID)
	optStr(e, "payment_method", p.MethodName)
	e.FieldStart("payment_status")
	e.Str(string(p.Status))
	money(e, "payment_price", p.Amount)
	timestamp(e, "payment_created", p.CreatedAt)
}

func encodePayment(e *jx.Encoder, p payment.Payment) {
	e.ObjStart()
	paymentFields(e, p)
	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s payment.Summary) {
	e.ObjStart()
	paymentFields(e, s.Payment)
	e.FieldStart("order_status")
	e.Str(string(s.OrderStatus))
	e.FieldStart("user_id")
	e.Int64(s.UserID)
	e.FieldStart("user_email")
	e.Str(s.UserEmail)
	e.ObjEnd()
}

func encodeMethod(e *jx.Encoder, m payment.Method) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(m.ID)
	e.FieldStart("payment_name")
	e.Str(m.Name)
	e.ObjEnd()
}

func encodeLibraryEntry(e *jx.Encoder, en library.Entry) {
	e.ObjStart()
	e.FieldStart("app_id")
	e.Int64(en.AppID)
	e.FieldStart("name")
	e.Str(en.Name)
	optInt64(e, "order_id", en.OrderID)
	timestamp(e, "added_at", en.AddedAt)
	e.ObjEnd()
}

func encodeStats(e *jx.Encoder, s *admin.Stats) {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"users", s.Users},
		{"games", s.Games},
		{"orders", s.Orders},
		{"paid_orders", s.PaidOrders},
		{"pending_payments", s.PendingPayments},
		{"library_entries", s.LibraryEntries},
	} {
		e.FieldStart(f.name)
		e.Int(f.v)
	}
}
