package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"main/internal/domain/interfaces"

	"github.com/redis/go-redis/v9"
)

// Ledger implements the indivisible read-check-write primitives as server
// side Lua scripts. Each script decodes the JSON document, checks the
// precondition and writes the new document back inside a single eval, so no
// concurrent caller can observe a partial update. Scripts return 1 on
// success and nil when the precondition fails.
type Ledger struct {
	client *redis.Client
}

var _ interfaces.WalletLedger = (*Ledger)(nil)

func NewLedger(client *redis.Client) *Ledger {
	return &Ledger{client: client}
}

var ownedQuantityScript = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
    return false
end
local doc = cjson.decode(data)
local delta = tonumber(ARGV[1])
if doc.current_quantity + delta < 0 then
    return false
end
doc.current_quantity = doc.current_quantity + delta
redis.call('SET', KEYS[1], cjson.encode(doc))
return 1
`)

var walletBalanceScript = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
    return false
end
local doc = cjson.decode(data)
local delta = tonumber(ARGV[1])
if (doc.is_locked and delta < 0) or (doc.wallet_balance + delta < 0) then
    return false
end
doc.wallet_balance = doc.wallet_balance + delta
redis.call('SET', KEYS[1], cjson.encode(doc))
return 1
`)

var deductAndUnlockScript = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
    return false
end
local doc = cjson.decode(data)
local amount = tonumber(ARGV[1])
if doc.wallet_balance - amount < 0 then
    return false
end
doc.wallet_balance = doc.wallet_balance - amount
doc.is_locked = false
redis.call('SET', KEYS[1], cjson.encode(doc))
return 1
`)

var tryLockScript = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
    return false
end
local doc = cjson.decode(data)
if doc.is_locked then
    return false
end
doc.is_locked = true
redis.call('SET', KEYS[1], cjson.encode(doc))
return 1
`)

func (l *Ledger) UpdateOwnedQuantity(ctx context.Context, userName, stockID string, delta int64) (bool, error) {
	return l.run(ctx, ownedQuantityScript, ownedStockKey(userName, stockID), strconv.FormatInt(delta, 10))
}

func (l *Ledger) UpdateWalletBalance(ctx context.Context, userName string, delta float64) (bool, error) {
	return l.run(ctx, walletBalanceScript, userKey(userName), formatAmount(delta))
}

func (l *Ledger) DeductAndUnlock(ctx context.Context, userName string, amount float64) (bool, error) {
	if amount < 0 {
		return false, errors.New("deduct amount must not be negative")
	}
	return l.run(ctx, deductAndUnlockScript, userKey(userName), formatAmount(amount))
}

func (l *Ledger) TryLockWallet(ctx context.Context, userName string) (bool, error) {
	return l.run(ctx, tryLockScript, userKey(userName))
}

// UnlockWallet clears the lock flag with a plain read-modify-write. This is
// only called when abandoning a failed buy, where no competing writer holds
// the lock, so script atomicity is not required.
func (l *Ledger) UnlockWallet(ctx context.Context, userName string) error {
	store := New(l.client)
	user, err := store.GetUser(ctx, userName)
	if err != nil {
		return err
	}
	user.IsLocked = false
	return store.SaveUser(ctx, user)
}

func (l *Ledger) run(ctx context.Context, script *redis.Script, key string, args ...any) (bool, error) {
	_, err := script.Run(ctx, l.client, []string{key}, args...).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("run ledger script on %s: %w", key, err)
	}
	return true, nil
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
