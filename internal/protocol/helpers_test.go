package protocol_test

import (
	"crypto/ed25519"

	"github.com/mrz1836/custodian/internal/protocol"
)

func testKey(b byte) (ed25519.PrivateKey, protocol.PublicKey) {
	var seed protocol.Seed
	for i := range seed {
		seed[i] = b
	}
	return protocol.KeyFromSeed(seed)
}

func testPayment(sender protocol.Address) protocol.Transaction {
	receiver, err := protocol.ParseAddress(knownAddress)
	if err != nil {
		panic(err)
	}
	return protocol.Transaction{
		Type: protocol.PaymentTx,
		Header: protocol.Header{
			Sender:     sender,
			Fee:        1000,
			FirstValid: 12326444,
			LastValid:  12326444 + 1000,
		},
		PaymentFields: protocol.PaymentFields{
			Receiver: receiver,
			Amount:   200000,
		},
	}
}
