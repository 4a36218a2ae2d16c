// Copyright (c) VoxFlow Authors.
// Licensed under the MIT License.

/*
Package emr integrates the engine with an electronic medical record
system.

Client is the collaborator boundary: every clinical action the engine can
take (patient search, chart retrieval, orders, messages, referrals) goes
through it. RESTClient talks to a real EMR over HTTP and understands both
a plain JSON API and FHIR R4 resource encoding for patient data. Fake is
an in-memory implementation seeded with demo patients for tests and for
running the engine without an EMR connection.

RegisterAll wires one handler per capability into a capability.Registry,
translating between engine parameter maps and typed client calls. Handler
errors carry structured codes so failure reasons can surface to users
without leaking raw collaborator payloads.
*/
package emr
