package identity_test

import (
	"context"
	"time"

	"github.com/frahmantamala/expenseflow/internal/identity"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("MemoryRevocationStore", func() {
	It("remembers a token until its ttl passes", func() {
		ctx := context.Background()
		store := identity.NewMemoryRevocationStore()

		Expect(store.Revoke(ctx, "jti-1", 50*time.Millisecond)).To(Succeed())
		Expect(store.IsRevoked(ctx, "jti-1")).To(BeTrue())
		Expect(store.IsRevoked(ctx, "jti-2")).To(BeFalse())

		Eventually(func() bool {
			revoked, _ := store.IsRevoked(ctx, "jti-1")
			return revoked
		}).WithTimeout(time.Second).Should(BeFalse())
	})

	It("ignores tokens that already expired", func() {
		store := identity.NewMemoryRevocationStore()
		Expect(store.Revoke(context.Background(), "old", -time.Second)).To(Succeed())
		Expect(store.IsRevoked(context.Background(), "old")).To(BeFalse())
	})
})
