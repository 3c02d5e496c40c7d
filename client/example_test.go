package client_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/fitstack/checkout-bridge/client"
	"github.com/fitstack/checkout-bridge/docstore/memory"
)

func ExampleNew() {
	ctx := context.Background()
	c := client.New(memory.New(), client.WithTimeout(10*time.Second))
	defer c.Close()

	id, err := c.Payments.PlaceInvoice(ctx, client.Invoice{"id": "inv1", "amount": 100, "currency": "UAH"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(id)

	_, err = c.Payments.FetchCheckoutSession(ctx, id, nil)
	fmt.Println(client.IsCode(err, client.CodeNotFound))

	pending, err := c.Payments.FindPendingCheckoutSessions(ctx, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(len(pending))
	// Output:
	// inv1
	// true
	// 0
}

func ExampleNewFirestore() {
	ctx := context.Background()
	fc, err := firestore.NewClient(ctx, firestore.DetectProjectID)
	if err != nil {
		log.Fatal(err)
	}
	defer fc.Close()

	c := client.NewFirestore(fc, client.WithSessionsCollection("users/{userId}/checkout-sessions"))
	session, err := c.Payments.PlaceInvoiceAndWait(ctx, client.Invoice{"userId": "u1", "amount": 100}, client.Timeout(time.Minute))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(session.PaymentPageURL)
}
