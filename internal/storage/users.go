package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/suspectuso/earn-bot/internal/ledger"
)

var ErrInvalidUsers = errors.New("invalid users document")

// userRecord is one entry of the users.json object, keyed by account id
type userRecord struct {
	Balance    int64  `json:"balance"`
	LastEarn   int64  `json:"last_earn"`
	Referrals  int64  `json:"referrals"`
	RefCode    string `json:"ref_code"`
	ReferredBy *int64 `json:"referred_by"`
}

// MarshalUsers encodes accounts as a users.json object, keeping their order
func MarshalUsers(accounts []ledger.Account) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range accounts {
		if i > 0 {
			buf.WriteByte(',')
		}
		rec, err := json.Marshal(userRecord{
			Balance:    a.Balance,
			LastEarn:   a.LastEarnAt,
			Referrals:  a.ReferralCount,
			RefCode:    a.ReferralCode,
			ReferredBy: a.ReferredBy,
		})
		if err != nil {
			return nil, err
		}
		buf.WriteString(strconv.Quote(strconv.FormatInt(a.ID, 10)))
		buf.WriteByte(':')
		buf.Write(rec)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "    "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// UnmarshalUsers decodes a users.json document in key order.
// An empty document or an empty array decodes to no accounts.
func UnmarshalUsers(data []byte) ([]ledger.Account, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid json", ErrInvalidUsers)
	}

	doc := gjson.ParseBytes(data)
	if doc.IsArray() && len(doc.Array()) == 0 {
		return nil, nil
	}
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: expected an object", ErrInvalidUsers)
	}

	var (
		accounts  []ledger.Account
		decodeErr error
	)
	doc.ForEach(func(key, value gjson.Result) bool {
		id, err := strconv.ParseInt(key.String(), 10, 64)
		if err != nil {
			decodeErr = fmt.Errorf("%w: bad account id %q", ErrInvalidUsers, key.String())
			return false
		}
		if !value.IsObject() {
			decodeErr = fmt.Errorf("%w: account %d is not an object", ErrInvalidUsers, id)
			return false
		}

		a := ledger.Account{
			ID:            id,
			Balance:       value.Get("balance").Int(),
			LastEarnAt:    value.Get("last_earn").Int(),
			ReferralCount: value.Get("referrals").Int(),
			ReferralCode:  value.Get("ref_code").String(),
		}
		if ref := value.Get("referred_by"); ref.Exists() && ref.Type != gjson.Null {
			by := ref.Int()
			a.ReferredBy = &by
		}
		accounts = append(accounts, a)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}

	return accounts, nil
}
