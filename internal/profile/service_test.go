package profile_test

import (
	"context"

	"github.com/frahmantamala/expenseflow/internal"
	profileDatamodel "github.com/frahmantamala/expenseflow/internal/core/datamodel/profile"
	"github.com/frahmantamala/expenseflow/internal/profile"
	profilePostgres "github.com/frahmantamala/expenseflow/internal/profile/postgres"
	applogger "github.com/frahmantamala/expenseflow/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func strPtr(s string) *string { return &s }

func openProfiles() (*gorm.DB, *profile.Service) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(db.AutoMigrate(&profileDatamodel.Profile{})).To(Succeed())
	return db, profile.NewService(profilePostgres.NewProfileRepository(db), applogger.Discard())
}

var _ = Describe("Profile Service", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		service *profile.Service
		ada     *profileDatamodel.Profile
	)

	BeforeEach(func() {
		ctx = context.Background()
		db, service = openProfiles()

		ada = &profileDatamodel.Profile{Email: "ada@acme.test", FullName: "Ada", PasswordHash: strPtr("hash")}
		Expect(db.Create(ada).Error).To(Succeed())
		Expect(db.Create(&profileDatamodel.Profile{Email: "bo@acme.test", FullName: "Bo"}).Error).To(Succeed())
	})

	Describe("GetProfile", func() {
		It("never exposes the password hash", func() {
			p, err := service.GetProfile(ctx, ada.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Email).To(Equal("ada@acme.test"))
			Expect(p.HasPassword).To(BeTrue())
		})

		It("reports a missing profile", func() {
			_, err := service.GetProfile(ctx, "missing")
			Expect(err).To(MatchError(internal.ErrProfileNotFound))
		})
	})

	Describe("GetProfiles", func() {
		It("returns only the ids that exist", func() {
			found, err := service.GetProfiles(ctx, []string{ada.ID, "missing"})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found).To(HaveKey(ada.ID))
		})

		It("returns an empty map for no ids", func() {
			found, err := service.GetProfiles(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeEmpty())
		})
	})

	Describe("UpdateProfile", func() {
		It("trims and stores the new name", func() {
			p, err := service.UpdateProfile(ctx, ada.ID, profile.UpdateProfileDTO{FullName: strPtr("  Ada Lovelace ")})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.FullName).To(Equal("Ada Lovelace"))
		})

		It("clears the avatar when given an empty string", func() {
			_, err := service.UpdateProfile(ctx, ada.ID, profile.UpdateProfileDTO{AvatarURL: strPtr("https://cdn.acme.test/ada.png")})
			Expect(err).NotTo(HaveOccurred())

			p, err := service.UpdateProfile(ctx, ada.ID, profile.UpdateProfileDTO{AvatarURL: strPtr(" ")})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.AvatarURL).To(BeNil())
		})

		It("rejects a blank name and a malformed avatar", func() {
			_, err := service.UpdateProfile(ctx, ada.ID, profile.UpdateProfileDTO{FullName: strPtr("   ")})
			Expect(err).To(MatchError(ContainSubstring("full_name is required")))

			_, err = service.UpdateProfile(ctx, ada.ID, profile.UpdateProfileDTO{AvatarURL: strPtr("not a url")})
			Expect(err).To(MatchError(ContainSubstring("avatar_url must be a valid URL")))
		})

		It("returns the profile unchanged when nothing is set", func() {
			p, err := service.UpdateProfile(ctx, ada.ID, profile.UpdateProfileDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.FullName).To(Equal("Ada"))
		})

		It("reports an unknown identity", func() {
			_, err := service.UpdateProfile(ctx, "missing", profile.UpdateProfileDTO{FullName: strPtr("X")})
			Expect(err).To(MatchError(internal.ErrProfileNotFound))
		})
	})
})
