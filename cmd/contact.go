package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/carlot/internal/model"
	"github.com/sells-group/carlot/pkg/relay"
)

var contactCmd = &cobra.Command{
	Use:   "contact <car-id>",
	Short: "Send an inquiry about a car to the managers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		question, _ := cmd.Flags().GetString("question")
		phone, _ := cmd.Flags().GetString("phone")
		method, _ := cmd.Flags().GetString("method")
		initData, _ := cmd.Flags().GetString("init-data")

		form, err := relay.ValidateForm(relay.Form{Question: question, Phone: phone, ContactMethod: method})
		if err != nil {
			return err
		}

		identity, err := newVerifier(cfg.Telegram).Identify(initData)
		if err != nil {
			return eris.Wrap(err, "contact: init data")
		}

		batch, err := newLoader(cfg.Feed, nil).Load(ctx)
		if err != nil {
			return eris.Wrap(err, "contact: load inventory")
		}
		v, ok := batch.Find(args[0])
		if !ok {
			return eris.Errorf("contact: car %q not found", args[0])
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cur := defaultCurrency(cfg.Rates)
		inq := relay.BuildInquiry(v, identity, form, newRates(cfg.Rates).Table(ctx), cur, time.Now())

		rec := model.StoredInquiry{
			ID:            uuid.NewString(),
			CarID:         v.ID,
			UserID:        inq.User.UserID,
			ContactMethod: inq.ContactMethod,
			Status:        model.InquirySent,
			CreatedAt:     inq.Timestamp,
		}
		sendErr := newRelay(cfg.Relay).Submit(ctx, inq)
		if sendErr != nil {
			rec.Status = model.InquiryFailed
			rec.Error = sendErr.Error()
		}
		if err := st.SaveInquiry(ctx, rec); err != nil {
			zap.L().Warn("save inquiry", zap.String("id", rec.ID), zap.Error(err))
		}

		if sendErr != nil {
			var se *relay.SubmissionError
			if errors.As(sendErr, &se) {
				fmt.Fprintln(os.Stderr, se.Message)
			}
			return eris.Wrap(sendErr, "contact")
		}
		fmt.Fprintf(os.Stdout, "Inquiry %s sent about %s.\n", truncateID(rec.ID), v.Title())
		return nil
	},
}

func init() {
	contactCmd.Flags().String("question", "", "question for the manager")
	contactCmd.Flags().String("phone", "", "phone number (required for whatsapp)")
	contactCmd.Flags().String("method", "whatsapp", "contact method (whatsapp, telegram, phone)")
	contactCmd.Flags().String("init-data", "", "mini-app init data identifying the buyer")
	rootCmd.AddCommand(contactCmd)
}
