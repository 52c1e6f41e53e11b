package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
	"github.com/spf13/viper"
)

// SettlementService converts withdrawal payouts into pacs.008 credit
// transfer messages and queues them for the banking partner. Queueing
// happens after the ledger transaction commits, so a queue failure never
// rolls back a withdrawal.
type SettlementService struct {
	redis *redis.Client
}

// WithdrawalTransfer describes one payout to a user's withdrawal account.
type WithdrawalTransfer struct {
	Reference     string
	AccountNumber string
	BankName      string
	Amount        int64
}

func NewSettlementService(redisClient *redis.Client) *SettlementService {
	return &SettlementService{redis: redisClient}
}

// QueueWithdrawal builds the pacs.008 document and pushes its XML onto
// the settlement queue. Without Redis the message is dropped with an
// error so the caller can log it.
func (ss *SettlementService) QueueWithdrawal(ctx context.Context, transfer *WithdrawalTransfer) error {
	if ss.redis == nil {
		return fmt.Errorf("settlement queue unavailable")
	}

	doc, err := ss.CreatePacs008(transfer)
	if err != nil {
		return err
	}

	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal XML: %w", err)
	}

	return ss.redis.RPush(ctx, "settlement_queue", string(xmlData)).Err()
}

// CreatePacs002 creates a pacs.002 payment status report answering one
// queued payout. Status is an external code such as ACCP, ACSC or RJCT.
func (ss *SettlementService) CreatePacs002(reference, status string) (*pacs_v08.FIToFIPaymentStatusReportV08, error) {
	msgId := uuid.New().String()
	creDtTm := time.Now()

	doc := &pacs_v08.FIToFIPaymentStatusReportV08{
		GrpHdr: pacs_v08.GroupHeader53{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
		},
		TxInfAndSts: []pacs_v08.PaymentTransaction80{
			{
				OrgnlInstrId:    &[]common.Max35Text{common.Max35Text(reference)}[0],
				OrgnlEndToEndId: &[]common.Max35Text{common.Max35Text(reference)}[0],
				OrgnlTxId:       &[]common.Max35Text{common.Max35Text(reference)}[0],
				TxSts:           &[]pacs_v08.ExternalPaymentTransactionStatus1Code{pacs_v08.ExternalPaymentTransactionStatus1Code(status)}[0],
			},
		},
	}

	return doc, nil
}

// ReportStatus queues the pacs.002 answer for a payout reference.
func (ss *SettlementService) ReportStatus(ctx context.Context, reference, status string) error {
	if ss.redis == nil {
		return fmt.Errorf("settlement queue unavailable")
	}

	doc, err := ss.CreatePacs002(reference, status)
	if err != nil {
		return err
	}

	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal XML: %w", err)
	}

	return ss.redis.RPush(ctx, "settlement_status_queue", string(xmlData)).Err()
}

// CreatePacs008 creates a pacs.008 FIToFICustomerCreditTransfer message
// for a single payout.
func (ss *SettlementService) CreatePacs008(transfer *WithdrawalTransfer) (*pacs_v08.FIToFICustomerCreditTransferV08, error) {
	viper.SetDefault("settlement.bic", "WECODEKR")
	viper.SetDefault("settlement.currency", "KRW")

	msgId := uuid.New().String()
	creDtTm := time.Now()
	settlementDate := time.Now()
	currency := viper.GetString("settlement.currency")

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
			NbOfTxs: "1",
			TtlIntrBkSttlmAmt: &pacs_v08.ActiveCurrencyAndAmount{
				Ccy:   common.ActiveCurrencyCode(currency),
				Value: float64(transfer.Amount),
			},
			IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG",
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &[]common.Max35Text{common.Max35Text(transfer.Reference)}[0],
					EndToEndId: common.Max35Text(transfer.Reference),
					TxId:       &[]common.Max35Text{common.Max35Text(transfer.Reference)}[0],
				},
				IntrBkSttlmAmt: pacs_v08.ActiveCurrencyAndAmount{
					Ccy:   common.ActiveCurrencyCode(currency),
					Value: float64(transfer.Amount),
				},
				IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
				ChrgBr:        "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(viper.GetString("settlement.bic"))}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text("111PERCENT")}[0],
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						ClrSysMmbId: &pacs_v08.ClearingSystemMemberIdentification2{
							MmbId: common.Max35Text(transfer.BankName),
						},
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(transfer.AccountNumber)}[0],
				},
			},
		},
	}

	return doc, nil
}
